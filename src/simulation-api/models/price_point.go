package models

import (
	"time"

	"github.com/google/uuid"
)

type PricePoint struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey" csv:"-"`
	Ticker  string    `json:"ticker" gorm:"index:idx_ticker_sim_time;not null" csv:"ticker"`
	Price   float64   `json:"price" gorm:"type:numeric;not null" csv:"price"`
	Volume  int64     `json:"volume" csv:"volume"`
	SimTime time.Time `json:"sim_time" gorm:"index:idx_ticker_sim_time" csv:"sim_time"`
}

func NewPricePoint(ticker string, price float64, volume int64, simTime time.Time) *PricePoint {
	return &PricePoint{
		ID:      uuid.New(),
		Ticker:  ticker,
		Price:   price,
		Volume:  volume,
		SimTime: simTime,
	}
}
