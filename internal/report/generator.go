// Package report aggregates transactions into money in/out totals per vendor
// and renders the result as CSV or JSON.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"softetsolutions/mattax/internal/dateutils"
	"softetsolutions/mattax/internal/feed"
	"softetsolutions/mattax/internal/fileutils"
	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// TotalLabel names the grand total row of the CSV output.
const TotalLabel = "TOTAL"

// VendorLookup finds vendors by id in the entity cache.
type VendorLookup interface {
	ByID(kind models.EntityKind, id models.ID) (models.ReferenceEntity, bool)
}

// VendorTotal is the aggregate for one vendor.
type VendorTotal struct {
	Vendor   string          `json:"vendor"`
	MoneyIn  decimal.Decimal `json:"money_in"`
	MoneyOut decimal.Decimal `json:"money_out"`
	Count    int             `json:"count"`
}

// Net returns money in minus money out.
func (v VendorTotal) Net() decimal.Decimal {
	return v.MoneyIn.Sub(v.MoneyOut)
}

// Summary is the aggregate over a date range. Zero bounds are open.
type Summary struct {
	From     time.Time       `json:"from,omitempty"`
	To       time.Time       `json:"to,omitempty"`
	MoneyIn  decimal.Decimal `json:"money_in"`
	MoneyOut decimal.Decimal `json:"money_out"`
	Count    int             `json:"count"`
	Skipped  int             `json:"skipped"`
	Vendors  []VendorTotal   `json:"vendors"`
}

// Net returns money in minus money out.
func (s Summary) Net() decimal.Decimal {
	return s.MoneyIn.Sub(s.MoneyOut)
}

// row is one line of the CSV output.
type row struct {
	Vendor   string `csv:"vendor"`
	MoneyIn  string `csv:"money_in"`
	MoneyOut string `csv:"money_out"`
	Net      string `csv:"net"`
	Count    int    `csv:"count"`
}

// Generator builds and renders summaries.
type Generator struct {
	vendors   VendorLookup
	delimiter rune
	logger    logging.Logger
}

// NewGenerator creates a Generator. vendors may be nil, in which case vendor
// names come from the transactions alone. A zero delimiter means ','.
func NewGenerator(vendors VendorLookup, delimiter rune, logger logging.Logger) *Generator {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Generator{
		vendors:   vendors,
		delimiter: delimiter,
		logger:    logging.OrDefault(logger),
	}
}

// Collect reads every page from source.
func (g *Generator) Collect(ctx context.Context, source feed.Source, sess models.Session) ([]models.Transaction, error) {
	c := feed.NewController(source, sess, g.logger)
	if err := c.LoadFirstPage(ctx); err != nil {
		return nil, err
	}
	for c.HasMore() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.LoadNextPage(ctx); err != nil {
			return nil, err
		}
	}
	items := c.Items()
	g.logger.Debug("Collected transactions for report",
		logging.F(logging.FieldCount, len(items)),
		logging.F(logging.FieldPage, c.Page()))
	return items, nil
}

// Summarize aggregates txs created within [from, to]. Transactions without a
// readable creation date are skipped when a bound is set.
func (g *Generator) Summarize(txs []models.Transaction, from, to time.Time) Summary {
	s := Summary{From: from, To: to}
	bounded := !from.IsZero() || !to.IsZero()
	byVendor := make(map[string]*VendorTotal)

	for _, tx := range txs {
		if bounded {
			created, _, err := dateutils.ParseDate(tx.CreatedAt)
			if err != nil {
				s.Skipped++
				continue
			}
			if !dateutils.InRange(created, from, to) {
				continue
			}
		}

		name := g.vendorName(tx)
		vt, ok := byVendor[name]
		if !ok {
			vt = &VendorTotal{Vendor: name}
			byVendor[name] = vt
		}

		amount := transactionAmount(tx)
		if tx.TransactionType() == models.MoneyIn {
			s.MoneyIn = s.MoneyIn.Add(amount)
			vt.MoneyIn = vt.MoneyIn.Add(amount)
		} else {
			s.MoneyOut = s.MoneyOut.Add(amount)
			vt.MoneyOut = vt.MoneyOut.Add(amount)
		}
		vt.Count++
		s.Count++
	}

	s.Vendors = make([]VendorTotal, 0, len(byVendor))
	for _, vt := range byVendor {
		s.Vendors = append(s.Vendors, *vt)
	}
	sort.Slice(s.Vendors, func(i, j int) bool { return s.Vendors[i].Vendor < s.Vendors[j].Vendor })

	if s.Skipped > 0 {
		g.logger.Warn("Skipped transactions without a creation date",
			logging.F(logging.FieldCount, s.Skipped))
	}
	return s
}

func (g *Generator) vendorName(tx models.Transaction) string {
	if g.vendors != nil && tx.VendorID != "" {
		if e, ok := g.vendors.ByID(models.KindVendor, tx.VendorID); ok {
			return e.Label
		}
	}
	if name := tx.VendorLabel(); name != "" {
		return name
	}
	return models.UnknownValue
}

// transactionAmount returns the stored total, or the sum of the channels for
// records that only carry the split.
func transactionAmount(tx models.Transaction) decimal.Decimal {
	if !tx.Amount.IsZero() {
		return tx.Amount.Decimal
	}
	return tx.AmountCash.Add(tx.AmountBank.Decimal).Add(tx.AmountCreditCard.Decimal)
}

// GenerateReport renders s in format ("csv" or "json").
func (g *Generator) GenerateReport(s Summary, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return g.generateCSV(s)
	case FormatJSON:
		return g.generateJSON(s)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *Generator) generateCSV(s Summary) ([]byte, error) {
	rows := make([]row, 0, len(s.Vendors)+1)
	for _, v := range s.Vendors {
		rows = append(rows, row{
			Vendor:   v.Vendor,
			MoneyIn:  v.MoneyIn.StringFixed(2),
			MoneyOut: v.MoneyOut.StringFixed(2),
			Net:      v.Net().StringFixed(2),
			Count:    v.Count,
		})
	}
	rows = append(rows, row{
		Vendor:   TotalLabel,
		MoneyIn:  s.MoneyIn.StringFixed(2),
		MoneyOut: s.MoneyOut.StringFixed(2),
		Net:      s.Net().StringFixed(2),
		Count:    s.Count,
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = g.delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(w)); err != nil {
		g.logger.WithError(err).Error("Failed to marshal CSV report")
		return nil, fmt.Errorf("failed to marshal CSV report: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) generateJSON(s Summary) ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return out, nil
}

// WriteFile renders s and writes it to path, creating parent directories.
func (g *Generator) WriteFile(s Summary, format, path string) error {
	data, err := g.GenerateReport(s, format)
	if err != nil {
		return err
	}
	if err := fileutils.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	g.logger.Info("Report written",
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, s.Count))
	return nil
}
