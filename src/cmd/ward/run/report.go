package run

import (
	"context"
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jiaming2012/ward-market/src/simulation-api/models"
	"github.com/jiaming2012/ward-market/src/simulation-api/services"
)

type SubjectReport struct {
	Ticker      string
	Name        string
	Status      models.SubjectStatus
	Price       float64
	Change      float64
	Volatility  float64
	MaxDrawdown float64
	Points      int
}

type Report struct {
	Clock     *models.WorldClock
	Fund      *models.FundSummary
	Portfolio *models.PortfolioSummary
	Subjects  []*SubjectReport
}

// NewSubjectReport summarises a price series, oldest point first. Volatility
// is the sample standard deviation of per-point returns.
func NewSubjectReport(subject *models.Subject, history []*models.PricePoint) (*SubjectReport, error) {
	report := &SubjectReport{
		Ticker: subject.Ticker,
		Name:   subject.Name,
		Status: subject.Status,
		Price:  subject.Price,
		Points: len(history),
	}

	if len(history) < 2 {
		return report, nil
	}

	prices := make(stats.Float64Data, 0, len(history))
	for _, p := range history {
		prices = append(prices, p.Price)
	}

	returns := make(stats.Float64Data, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, prices[i]/prices[i-1]-1)
	}

	report.Change = prices[len(prices)-1]/prices[0] - 1

	if len(returns) >= 2 {
		volatility, err := stats.StandardDeviationSample(returns)
		if err != nil {
			return nil, fmt.Errorf("volatility: %w", err)
		}
		report.Volatility = volatility
	}

	peak := prices[0]
	for _, price := range prices {
		if price > peak {
			peak = price
		}

		if dd := (peak - price) / peak; dd > report.MaxDrawdown {
			report.MaxDrawdown = dd
		}
	}

	return report, nil
}

func BuildReport(ctx context.Context, world *services.WorldService, historyLimit int) (*Report, error) {
	clock, err := world.FetchClock(ctx)
	if err != nil {
		return nil, fmt.Errorf("buildReport: %w", err)
	}

	fund, err := world.FetchFundSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("buildReport: %w", err)
	}

	portfolio, err := world.FetchPortfolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("buildReport: %w", err)
	}

	subjects, err := world.FetchSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("buildReport: %w", err)
	}

	report := &Report{Clock: clock, Fund: fund, Portfolio: portfolio}
	for _, subject := range subjects {
		history, err := world.FetchPriceHistory(ctx, subject.Ticker, historyLimit)
		if err != nil {
			return nil, fmt.Errorf("buildReport: %w", err)
		}

		sr, err := NewSubjectReport(subject, history)
		if err != nil {
			return nil, fmt.Errorf("buildReport: %s: %w", subject.Ticker, err)
		}

		report.Subjects = append(report.Subjects, sr)
	}

	return report, nil
}

func (r *Report) Render(w io.Writer) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "Sim time: %s (tick %d, %s, speed %.0fx)\n\n", r.Clock.SimTime.Format("2006-01-02 15:04"), r.Clock.TickCount, r.Clock.State(), r.Clock.Speed)

	subjects := tablewriter.NewWriter(w)
	subjects.SetHeader([]string{"Ticker", "Name", "Status", "Price", "Change", "Volatility", "Max DD", "Points"})
	subjects.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range r.Subjects {
		subjects.Append([]string{
			s.Ticker,
			s.Name,
			string(s.Status),
			p.Sprintf("$%.2f", s.Price),
			fmt.Sprintf("%+.2f%%", s.Change*100),
			fmt.Sprintf("%.2f%%", s.Volatility*100),
			fmt.Sprintf("%.2f%%", s.MaxDrawdown*100),
			fmt.Sprintf("%d", s.Points),
		})
	}
	subjects.Render()

	fmt.Fprintln(w)

	fund := tablewriter.NewWriter(w)
	fund.SetHeader([]string{"Balance", "Allocated", "Available", "Unrealized", "Realized", "Drawdown", "Open", "Closed"})
	fund.Append([]string{
		p.Sprintf("$%.2f", r.Fund.Balance),
		p.Sprintf("$%.2f", r.Fund.AllocatedToPositions),
		p.Sprintf("$%.2f", r.Fund.Available),
		p.Sprintf("$%.2f", r.Fund.UnrealizedPnL),
		p.Sprintf("$%.2f", r.Portfolio.TotalRealizedPnL),
		fmt.Sprintf("%.2f%%", r.Fund.Drawdown*100),
		fmt.Sprintf("%d", r.Portfolio.OpenPositions),
		fmt.Sprintf("%d", r.Portfolio.ClosedPositions),
	})
	fund.Render()
}
