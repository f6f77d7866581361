package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"wattmon/internal/model"
)

type saleExport struct {
	OrderID       string  `json:"order_id"`
	Currency      string  `json:"currency"`
	AmountSold    float64 `json:"amount_sold"`
	TotalReceived float64 `json:"total_received"`
	AvgPrice      float64 `json:"avg_price"`
	ExecutedAt    string  `json:"executed_at"`
}

// ParseSalesFile reads an exchange sale export, either a JSON array or one
// JSON object per line. Records missing an order id or timestamp are counted
// as defects and skipped; a partially bad export still imports the rest.
func ParseSalesFile(path string) (sales []model.SaleRecord, defects int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading sales export: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, 0, nil
	}

	var raw []saleExport
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, 0, fmt.Errorf("parsing sales export: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var rec saleExport
			if err := json.Unmarshal(line, &rec); err != nil {
				defects++
				continue
			}
			raw = append(raw, rec)
		}
		if err := scanner.Err(); err != nil {
			return nil, defects, fmt.Errorf("reading sales export: %w", err)
		}
	}

	for _, rec := range raw {
		sale, ok := toSale(rec)
		if !ok {
			defects++
			continue
		}
		sales = append(sales, sale)
	}
	return sales, defects, nil
}

func toSale(rec saleExport) (model.SaleRecord, bool) {
	if rec.OrderID == "" {
		return model.SaleRecord{}, false
	}
	executed, err := time.Parse(time.RFC3339, rec.ExecutedAt)
	if err != nil {
		return model.SaleRecord{}, false
	}
	currency := rec.Currency
	if currency == "" {
		currency = TrackedCurrency
	}
	return model.SaleRecord{
		OrderID:       rec.OrderID,
		Currency:      currency,
		AmountSold:    rec.AmountSold,
		TotalReceived: rec.TotalReceived,
		AvgPrice:      rec.AvgPrice,
		ExecutedAt:    executed,
	}, true
}
