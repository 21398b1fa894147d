package ingest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// KDP exports as XLSX workbooks with several sheets. Royalty sheets are
// segmented by format and order-placement sheets by granularity:
//
//	eBook Royalty        — ebook royalty detail
//	Paperback Royalty    — paperback royalty detail
//	Hardcover Royalty    — hardcover detail (optional, often empty)
//	eBook Orders Placed  — daily ebook orders
//	Orders Processed     — paperback orders (monthly)
//
// Each row is tagged with the format its sheet declares, never inferred from
// content when the sheet already says so.

var kdpRoyaltyAliases = map[string]string{
	"Royalty Date":     "date",
	"Date":             "date",
	"Order Date":       "order_date",
	"Title":            "title",
	"Author Name":      "author",
	"Author":           "author",
	"ASIN":             "asin",
	"ASIN/ISBN":        "asin",
	"ISBN":             "isbn",
	"Marketplace":      "marketplace",
	"Royalty Type":     "royalty_type",
	"Transaction Type": "transaction_type",
	"Units Sold":       "units_sold",
	"Units Refunded":   "units_refunded",
	"Units Returned":   "units_refunded",
	"Net Units Sold":   "net_units_sold",
	"Royalty":          "royalty",
	"Currency":         "currency",
	"Avg. List Price without tax":  "avg_list_price",
	"Avg. Offer Price without tax": "avg_offer_price",
	"Average List Price":           "avg_list_price",
	"Average Offer Price":          "avg_offer_price",
	"Avg. Manufacturing Cost":      "manufacturing_cost",
	"Avg. Delivery Cost":           "delivery_cost",
}

var kdpOrderAliases = map[string]string{
	"Date":        "date",
	"Title":       "title",
	"Author Name": "author",
	"ASIN":        "asin",
	"Marketplace": "marketplace",
	"Paid Units":  "paid_units",
	"Free Units":  "free_units",
}

var kdpRoyaltySheets = []struct {
	name   string
	format BookFormat
}{
	{"eBook Royalty", FormatEbook},
	{"Paperback Royalty", FormatPaperback},
	{"Hardcover Royalty", FormatHardcover},
}

var kdpOrderSheets = []struct {
	name   string
	format BookFormat
}{
	{"eBook Orders Placed", FormatEbook},
	// Orders Processed covers all print orders; the ASINs in it are paperback.
	{"Orders Processed", FormatPaperback},
}

// LoadKDPReport parses a KDP Sales Dashboard export (multi-sheet XLSX or flat
// CSV) into normalized royalty rows, retaining only the home marketplace. A
// workbook with zero usable royalty sheets yields an empty table, not an
// error.
func LoadKDPReport(path, marketplace string, logger *zap.Logger) ([]KdpSaleRow, error) {
	if !isSpreadsheet(path) {
		return loadKDPCSV(path, marketplace, logger)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open KDP workbook %s: %w", path, err)
	}
	defer f.Close()

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	var rows []KdpSaleRow
	for _, sheet := range kdpRoyaltySheets {
		if !present[sheet.name] {
			continue
		}
		t, err := sheetTable(f, sheet.name, kdpRoyaltyAliases)
		if err != nil {
			return nil, err
		}
		rows = append(rows, royaltyRows(t, sheet.format, marketplace)...)
	}

	if logger != nil {
		logger.Debug("loaded KDP royalty data",
			zap.String("path", path),
			zap.Int("rows", len(rows)))
	}
	return rows, nil
}

func royaltyRows(t *table, format BookFormat, marketplace string) []KdpSaleRow {
	var rows []KdpSaleRow
	for _, rec := range t.rows {
		mp := t.cell(rec, "marketplace")
		// International marketplace rows carry independent currency
		// semantics; filter per sheet before concatenation.
		if mp != "" && !strings.Contains(mp, marketplace) {
			continue
		}
		title := t.cell(rec, "title")
		if title == "" && t.cell(rec, "asin") == "" {
			continue
		}

		row := KdpSaleRow{
			Date:          parseDateCell(t.cell(rec, "date")),
			Title:         title,
			Author:        t.cell(rec, "author"),
			ASIN:          t.cell(rec, "asin"),
			Format:        format,
			UnitsSold:     parseIntCell(t.cell(rec, "units_sold")),
			UnitsRefunded: parseIntCell(t.cell(rec, "units_refunded")),
			Royalty:       parseCurrencyCell(t.cell(rec, "royalty")),
			Marketplace:   mp,
		}
		if t.has("net_units_sold") {
			row.NetUnitsSold = intPtr(parseIntCell(t.cell(rec, "net_units_sold")))
		}
		rows = append(rows, row)
	}
	return rows
}

// LoadKDPOrders parses the order-placement sheets of a KDP workbook. Flat CSV
// exports carry no order data, so they yield an empty table.
func LoadKDPOrders(path, marketplace string, logger *zap.Logger) ([]KdpOrderRow, error) {
	if !isSpreadsheet(path) {
		return nil, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open KDP workbook %s: %w", path, err)
	}
	defer f.Close()

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	var rows []KdpOrderRow
	for _, sheet := range kdpOrderSheets {
		if !present[sheet.name] {
			continue
		}
		t, err := sheetTable(f, sheet.name, kdpOrderAliases)
		if err != nil {
			return nil, err
		}
		for _, rec := range t.rows {
			mp := t.cell(rec, "marketplace")
			if mp != "" && !strings.Contains(mp, marketplace) {
				continue
			}
			title := t.cell(rec, "title")
			if title == "" && t.cell(rec, "asin") == "" {
				continue
			}
			rows = append(rows, KdpOrderRow{
				Date:        parseDateCell(t.cell(rec, "date")),
				Title:       title,
				Author:      t.cell(rec, "author"),
				ASIN:        t.cell(rec, "asin"),
				Format:      sheet.format,
				PaidUnits:   parseIntCell(t.cell(rec, "paid_units")),
				FreeUnits:   parseIntCell(t.cell(rec, "free_units")),
				Marketplace: mp,
			})
		}
	}

	if logger != nil && len(rows) > 0 {
		logger.Debug("loaded KDP order data",
			zap.String("path", path),
			zap.Int("rows", len(rows)))
	}
	return rows, nil
}

var kdpCSVMarkers = []string{"Date"}

// loadKDPCSV handles the flat CSV template format. Format is inferred from
// the ASIN only here, where no sheet declares it: B0-prefixed identifiers are
// Kindle ebooks, 10-digit ISBNs print.
func loadKDPCSV(path, marketplace string, logger *zap.Logger) ([]KdpSaleRow, error) {
	t, err := loadTable(path, kdpCSVMarkers, kdpRoyaltyAliases)
	if err != nil {
		return nil, err
	}

	var rows []KdpSaleRow
	for _, rec := range t.rows {
		mp := t.cell(rec, "marketplace")
		if mp != "" && !strings.Contains(mp, marketplace) {
			continue
		}
		asinVal := t.cell(rec, "asin")
		title := t.cell(rec, "title")
		if title == "" && asinVal == "" {
			continue
		}

		format := FormatPaperback
		if strings.HasPrefix(asinVal, "B0") {
			format = FormatEbook
		}

		row := KdpSaleRow{
			Date:          parseDateCell(t.cell(rec, "date")),
			Title:         title,
			Author:        t.cell(rec, "author"),
			ASIN:          asinVal,
			Format:        format,
			UnitsSold:     parseIntCell(t.cell(rec, "units_sold")),
			UnitsRefunded: parseIntCell(t.cell(rec, "units_refunded")),
			Royalty:       parseCurrencyCell(t.cell(rec, "royalty")),
			Marketplace:   mp,
		}
		if t.has("net_units_sold") {
			row.NetUnitsSold = intPtr(parseIntCell(t.cell(rec, "net_units_sold")))
		}
		rows = append(rows, row)
	}

	if logger != nil {
		logger.Debug("loaded KDP CSV",
			zap.String("path", path),
			zap.Int("rows", len(rows)))
	}
	return rows, nil
}
