package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TradeAction string

const (
	TradeActionBuy   TradeAction = "buy"
	TradeActionSell  TradeAction = "sell"
	TradeActionShort TradeAction = "short"
	TradeActionCover TradeAction = "cover"
)

func (a TradeAction) Validate() error {
	switch a {
	case TradeActionBuy, TradeActionSell, TradeActionShort, TradeActionCover:
		return nil
	}

	return fmt.Errorf("%w: %q", ErrInvalidAction, a)
}

// IsOpening is true for buy and short, which open exposure.
func (a TradeAction) IsOpening() bool {
	return a == TradeActionBuy || a == TradeActionShort
}

// Side is the position side the action opens or closes.
func (a TradeAction) Side() PositionSide {
	if a == TradeActionShort || a == TradeActionCover {
		return PositionSideShort
	}

	return PositionSideLong
}

func OpeningAction(side PositionSide) TradeAction {
	if side == PositionSideShort {
		return TradeActionShort
	}

	return TradeActionBuy
}

func ClosingAction(side PositionSide) TradeAction {
	if side == PositionSideShort {
		return TradeActionCover
	}

	return TradeActionSell
}

type Trade struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey" csv:"id"`
	PositionID uuid.UUID   `json:"position_id" gorm:"type:uuid;index" csv:"position_id"`
	Ticker     string      `json:"ticker" gorm:"index;not null" csv:"ticker"`
	Action     TradeAction `json:"action" gorm:"not null" csv:"action"`
	Quantity   int         `json:"quantity" gorm:"not null" csv:"quantity"`
	Price      float64     `json:"price" gorm:"type:numeric;not null" csv:"price"`
	SimTime    time.Time   `json:"sim_time" csv:"sim_time"`
	CreatedAt  time.Time   `json:"created_at" gorm:"index" csv:"created_at"`
	Sequence   int64       `json:"-" gorm:"autoIncrement;index" csv:"-"`
}

func NewTrade(positionID uuid.UUID, ticker string, action TradeAction, quantity int, price float64, simTime, createdAt time.Time) *Trade {
	return &Trade{
		ID:         uuid.New(),
		PositionID: positionID,
		Ticker:     ticker,
		Action:     action,
		Quantity:   quantity,
		Price:      price,
		SimTime:    simTime,
		CreatedAt:  createdAt,
	}
}

type TradeRequest struct {
	Ticker   string      `json:"ticker"`
	Action   TradeAction `json:"action"`
	Quantity int         `json:"quantity"`
	Note     string      `json:"note,omitempty"`
}

func (req *TradeRequest) Validate() error {
	if req.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", ErrUnknownTicker)
	}

	if err := req.Action.Validate(); err != nil {
		return err
	}

	if req.Action.IsOpening() && req.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	return nil
}

type TradeResultStatus string

const (
	TradeResultOpened TradeResultStatus = "opened"
	TradeResultClosed TradeResultStatus = "closed"
)

type TradeResult struct {
	Status      TradeResultStatus `json:"status"`
	Position    *Position         `json:"position"`
	Trade       *Trade            `json:"trade"`
	Cost        float64           `json:"cost,omitempty"`
	RealizedPnL float64           `json:"realized_pnl,omitempty"`
}
