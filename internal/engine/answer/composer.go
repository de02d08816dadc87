// Package answer renders query results into short natural-language answers.
package answer

import (
	"fmt"
	"strings"

	"warehouse-askdb/internal/engine/conditions"
	"warehouse-askdb/internal/engine/executor"
	"warehouse-askdb/internal/engine/knowledge"
	"warehouse-askdb/internal/engine/templates"
	"warehouse-askdb/internal/engine/timeframe"
)

// Composer builds answer strings from results. Phrasing follows the warehouse
// reporting style: a timeframe prefix, the figures, then "according to records".
type Composer struct {
	kb *knowledge.Base
}

func NewComposer(kb *knowledge.Base) *Composer {
	return &Composer{kb: kb}
}

// Compose renders the answer for one executed query.
func (c *Composer) Compose(tmpl *templates.Template, res *executor.Result, rng *timeframe.Range, m conditions.Modifiers) string {
	prefix := rangePrefix(rng)

	if res.RowCount == 0 {
		return c.composeEmpty(tmpl, prefix, m)
	}

	switch tmpl.Intent {
	case templates.IntentCount:
		return c.composeCount(tmpl, prefix, res, m)
	case templates.IntentWeight:
		return c.composeWeight(prefix, res, m)
	case templates.IntentTransferHistory:
		return c.composeTransfer(tmpl, prefix, res, m)
	case templates.IntentUserActivity:
		return c.composeUserActivity(prefix, res)
	case templates.IntentStockLevel:
		return c.composeStock(tmpl, prefix, res, m)
	case templates.IntentOrderStatus:
		return c.composeOrders(prefix, res)
	default:
		return c.composeGeneric(tmpl, prefix, res)
	}
}

func (c *Composer) composeEmpty(tmpl *templates.Template, prefix string, m conditions.Modifiers) string {
	subject := "matching records"
	switch tmpl.Intent {
	case templates.IntentCount:
		subject = "pallets"
	case templates.IntentWeight:
		subject = "GRN records"
	case templates.IntentTransferHistory:
		subject = "transfers"
	case templates.IntentUserActivity:
		subject = "operator activity"
	case templates.IntentStockLevel:
		subject = "stock"
	case templates.IntentOrderStatus:
		subject = "orders"
	}
	switch tmpl.ID {
	case "void_count":
		subject = "voided pallets"
	case "supplier_count":
		subject = "suppliers"
	case "grn_list":
		subject = "GRN records"
	case "pallet_history":
		subject = "history records"
	}
	if m.ProductCode != "" {
		subject += " for " + m.ProductCode
	}
	if prefix != "" {
		return fmt.Sprintf("%s, no %s were found according to records.", prefix, subject)
	}
	return fmt.Sprintf("No %s were found according to records.", subject)
}

func (c *Composer) composeCount(tmpl *templates.Template, prefix string, res *executor.Result, m conditions.Modifiers) string {
	row := res.Rows[0]
	count := intValue(row, "pallet_count")
	qty := intValue(row, "total_quantity")

	if tmpl.ID == "supplier_count" {
		n := intValue(row, "supplier_count")
		s := fmt.Sprintf("%d suppliers are registered", n)
		if n == 1 {
			s = "1 supplier is registered"
		}
		return withPrefix(prefix, s) + " according to records."
	}
	if tmpl.ID == "void_count" {
		s := fmt.Sprintf("%d pallets were voided", count)
		if count == 1 {
			s = "1 pallet was voided"
		}
		return withPrefix(prefix, s) + " according to records."
	}

	subject, singular := "pallets", "pallet"
	if m.GRN == conditions.GRNInclude {
		subject, singular = "GRN pallets", "GRN pallet"
	} else if m.GRN == conditions.GRNExclude {
		subject, singular = "non-GRN pallets", "non-GRN pallet"
	}
	suffix := ""
	if m.ProductCode != "" {
		suffix = " of " + m.ProductCode
	}

	s := fmt.Sprintf("%d %s%s were generated", count, subject, suffix)
	if count == 1 {
		s = fmt.Sprintf("1 %s%s was generated", singular, suffix)
	}
	if qty > 0 {
		s += fmt.Sprintf(" with a total quantity of %d units", qty)
	}
	return withPrefix(prefix, s) + " according to records."
}

func (c *Composer) composeWeight(prefix string, res *executor.Result, m conditions.Modifiers) string {
	row := res.Rows[0]
	count := intValue(row, "pallet_count")
	net := floatValue(row, "total_net_weight")
	gross := floatValue(row, "total_gross_weight")

	subject := "material"
	if m.ProductCode != "" {
		subject = m.ProductCode
	}

	s := fmt.Sprintf("%d GRN records for %s totalled %.1f kg net (%.1f kg gross)",
		count, subject, net, gross)
	return withPrefix(prefix, s) + " according to records."
}

func (c *Composer) composeTransfer(tmpl *templates.Template, prefix string, res *executor.Result, m conditions.Modifiers) string {
	if tmpl.ID == "pallet_history" {
		limit := 5
		var lines []string
		for i, row := range res.Rows {
			if i >= limit {
				break
			}
			lines = append(lines, fmt.Sprintf("%v %v at %v", row["time"], row["action"], row["loc"]))
		}
		s := fmt.Sprintf("%d history events found. Latest: %s", res.RowCount, strings.Join(lines, "; "))
		return withPrefix(prefix, s) + " according to records."
	}

	if tmpl.ID == "transfer_count" {
		row := res.Rows[0]
		count := intValue(row, "transfer_count")
		unique := intValue(row, "unique_pallets")
		s := fmt.Sprintf("%d transfers covering %d pallets were recorded", count, unique)
		if m.Location != "" {
			s += " to " + m.Location
		}
		return withPrefix(prefix, s) + " according to records."
	}

	limit := 5
	var lines []string
	for i, row := range res.Rows {
		if i >= limit {
			break
		}
		lines = append(lines, fmt.Sprintf("%v: %v -> %v",
			row["plt_num"], row["f_loc"], row["t_loc"]))
	}
	s := fmt.Sprintf("%d transfer records found. Latest: %s",
		res.RowCount, strings.Join(lines, "; "))
	return withPrefix(prefix, s) + " according to records."
}

func (c *Composer) composeUserActivity(prefix string, res *executor.Result) string {
	limit := 3
	var lines []string
	for i, row := range res.Rows {
		if i >= limit {
			break
		}
		name := stringValue(row, "operator_name")
		if name == "" {
			name = fmt.Sprintf("operator %v", row["operator_id"])
		}
		lines = append(lines, fmt.Sprintf("%s (%d actions)", name, intValue(row, "action_count")))
	}
	s := "Most active: " + strings.Join(lines, ", ")
	return withPrefix(prefix, s) + " according to records."
}

func (c *Composer) composeStock(tmpl *templates.Template, prefix string, res *executor.Result, m conditions.Modifiers) string {
	if tmpl.ID == "stock_by_location" && m.Location != "" {
		col, ok := c.kb.LocationColumn(m.Location)
		if ok {
			total := 0
			for _, row := range res.Rows {
				total += intValue(row, col)
			}
			s := fmt.Sprintf("%d units across %d products are in %s", total, res.RowCount, m.Location)
			return withPrefix(prefix, s) + " according to records."
		}
	}

	if m.HasThreshold {
		var codes []string
		for i, row := range res.Rows {
			if i >= 5 {
				break
			}
			codes = append(codes, fmt.Sprintf("%v (%d)", row["product_code"], intValue(row, "total_inventory")))
		}
		op := "below"
		if m.ThresholdOp == ">" {
			op = "above"
		}
		s := fmt.Sprintf("%d products have inventory %s %d: %s",
			res.RowCount, op, m.Threshold, strings.Join(codes, ", "))
		return withPrefix(prefix, s) + " according to records."
	}

	var lines []string
	for i, row := range res.Rows {
		if i >= 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %v: %d units",
			i+1, row["product_code"], intValue(row, "total_inventory")))
	}
	s := "Top products by inventory: " + strings.Join(lines, ", ")
	return withPrefix(prefix, s) + " according to records."
}

func (c *Composer) composeOrders(prefix string, res *executor.Result) string {
	var lines []string
	for i, row := range res.Rows {
		if i >= 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("order %v (%v): %d of %d remaining",
			row["order_ref"], row["code"], intValue(row, "remain_qty"), intValue(row, "required_qty")))
	}
	s := fmt.Sprintf("%d order lines found. %s", res.RowCount, strings.Join(lines, "; "))
	return withPrefix(prefix, s) + " according to records."
}

func (c *Composer) composeGeneric(tmpl *templates.Template, prefix string, res *executor.Result) string {
	if tmpl.ID == "product_info" {
		row := res.Rows[0]
		s := fmt.Sprintf("%v: %v, colour %v, standard quantity %d",
			row["code"], row["description"], row["colour"], intValue(row, "standard_qty"))
		return withPrefix(prefix, s) + " according to records."
	}
	if tmpl.ID == "grn_list" {
		var lines []string
		for i, row := range res.Rows {
			if i >= 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("GRN %v: %v from %v, %v kg gross",
				row["grn_ref"], row["material_code"], row["sup_code"], row["gross_weight"]))
		}
		s := fmt.Sprintf("%d GRN records found. Latest: %s", res.RowCount, strings.Join(lines, "; "))
		return withPrefix(prefix, s) + " according to records."
	}
	if tmpl.ID == "supplier_info" {
		if res.RowCount == 1 {
			row := res.Rows[0]
			s := fmt.Sprintf("Supplier %v is %v", row["supplier_code"], row["supplier_name"])
			return withPrefix(prefix, s) + " according to records."
		}
		var lines []string
		for i, row := range res.Rows {
			if i >= 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("%v (%v)", row["supplier_code"], row["supplier_name"]))
		}
		s := fmt.Sprintf("%d suppliers found: %s", res.RowCount, strings.Join(lines, ", "))
		return withPrefix(prefix, s) + " according to records."
	}
	s := fmt.Sprintf("Found %d matching records", res.RowCount)
	return withPrefix(prefix, s) + " according to records."
}

// rangePrefix renders the timeframe the way the warehouse reports read, e.g.
// "Today(05/06/2025)" or "This week(02/06/2025 - 08/06/2025)".
func rangePrefix(rng *timeframe.Range) string {
	if rng == nil {
		return ""
	}

	const layout = "02/01/2006"
	lastDay := rng.End.AddDate(0, 0, -1)

	switch rng.Label {
	case "today":
		return fmt.Sprintf("Today(%s)", rng.Start.Format(layout))
	case "yesterday":
		return fmt.Sprintf("Yesterday(%s)", rng.Start.Format(layout))
	case "day before yesterday":
		return fmt.Sprintf("The day before yesterday(%s)", rng.Start.Format(layout))
	case "this week":
		return fmt.Sprintf("This week(%s - %s)", rng.Start.Format(layout), lastDay.Format(layout))
	case "last week":
		return fmt.Sprintf("Last week(%s - %s)", rng.Start.Format(layout), lastDay.Format(layout))
	case "past 7 days":
		return fmt.Sprintf("The past 7 days(%s - %s)", rng.Start.Format(layout), lastDay.Format(layout))
	case "this month":
		return fmt.Sprintf("This month(%s - %s)", rng.Start.Format(layout), lastDay.Format(layout))
	case "last month":
		return fmt.Sprintf("Last month(%s - %s)", rng.Start.Format(layout), lastDay.Format(layout))
	case "on":
		return fmt.Sprintf("On %s", rng.Start.Format(layout))
	default:
		return fmt.Sprintf("From %s to %s", rng.Start.Format(layout), lastDay.Format(layout))
	}
}

func withPrefix(prefix, s string) string {
	if prefix == "" {
		return s
	}
	return prefix + ", " + strings.ToLower(s[:1]) + s[1:]
}

func intValue(row map[string]interface{}, col string) int {
	switch v := row[col].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		var n int
		fmt.Sscanf(v, "%d", &n)
		return n
	default:
		return 0
	}
}

func floatValue(row map[string]interface{}, col string) float64 {
	switch v := row[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		var f float64
		fmt.Sscanf(v, "%f", &f)
		return f
	default:
		return 0
	}
}

func stringValue(row map[string]interface{}, col string) string {
	if v, ok := row[col].(string); ok {
		return v
	}
	return ""
}
