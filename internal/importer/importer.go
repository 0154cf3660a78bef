package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"whatsapp-notifier/internal/identity"
	"whatsapp-notifier/internal/store"
)

// SettingsWriter is the slice of the document store the importer writes to.
type SettingsWriter interface {
	Set(ctx context.Context, ref store.Ref, doc any, merge bool) error
}

// CSVImporter reads a merchant-settings CSV export and upserts the
// notification settings document of each merchant. Used for bulk onboarding
// and for restoring settings from a support export.
type CSVImporter struct {
	reader *csv.Reader
	store  SettingsWriter
}

func NewCSVImporter(r io.Reader, s SettingsWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // exports often carry trailing commas
	return &CSVImporter{
		reader: csvr,
		store:  s,
	}
}

type csvRow struct {
	ShopDomain          string
	OrderApproved       bool
	OrderMessage        string
	OrderScheduledMin   int
	ShipOrders          bool
	ShipTrackingMessage string
	ShipScheduledMin    int
}

// Run parses CSV rows and upserts one settings document per merchant.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		if err := i.save(ctx, row); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	instance := identity.NormalizeDomain(row.ShopDomain)
	if instance == "" {
		return fmt.Errorf("invalid shop domain %q", row.ShopDomain)
	}

	doc := map[string]any{
		"order_approved":          row.OrderApproved,
		"order_message":           row.OrderMessage,
		"order_scheduled_minutes": row.OrderScheduledMin,
		"ship_orders":             row.ShipOrders,
		"ship_tracking_message":   row.ShipTrackingMessage,
		"ship_scheduled_minutes":  row.ShipScheduledMin,
	}

	ref := store.Ref{Instance: instance, Collection: store.Settings, DocID: "notifications"}
	if err := i.store.Set(ctx, ref, doc, true); err != nil {
		return fmt.Errorf("upsert settings for %q: %w", instance, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[h] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	domain := pick(record, index, "shop_domain")
	if domain == "" {
		return nil
	}
	return &csvRow{
		ShopDomain:          domain,
		OrderApproved:       parseBool(pick(record, index, "order_approved")),
		OrderMessage:        pick(record, index, "order_message"),
		OrderScheduledMin:   parseInt(pick(record, index, "order_scheduled_minutes")),
		ShipOrders:          parseBool(pick(record, index, "ship_orders")),
		ShipTrackingMessage: pick(record, index, "ship_tracking_message"),
		ShipScheduledMin:    parseInt(pick(record, index, "ship_scheduled_minutes")),
	}
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
