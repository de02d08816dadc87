// Package templates defines the closed set of SQL query templates the engine
// can produce, together with the intent taxonomy and the keyword rules used
// to select among them.
package templates

// IntentType is the public classification of a question.
type IntentType string

const (
	IntentCount           IntentType = "Count"
	IntentWeight          IntentType = "Weight"
	IntentUserActivity    IntentType = "UserActivity"
	IntentStockLevel      IntentType = "StockLevel"
	IntentOrderStatus     IntentType = "OrderStatus"
	IntentTransferHistory IntentType = "TransferHistory"
	IntentGeneric         IntentType = "Generic"
)

// Modifier names a parameter the condition builder can extract from a question.
type Modifier string

const (
	ModifierProduct   Modifier = "product_code"
	ModifierLocation  Modifier = "location"
	ModifierGRN       Modifier = "grn"
	ModifierPallet    Modifier = "pallet_number"
	ModifierSupplier  Modifier = "supplier_code"
	ModifierThreshold Modifier = "threshold"
	ModifierLimit     Modifier = "limit"
	ModifierOrderRef  Modifier = "order_ref"
	ModifierOperator  Modifier = "operator_id"
)

// Rule is a keyword pattern with its score contribution. Longer, more specific
// phrases carry higher weights.
type Rule struct {
	Pattern string
	Weight  int
}

// Bind maps a detected modifier onto a column of the template's FROM clause.
// Op defaults to "=" when empty; the GRN bind uses LIKE and is flipped to
// NOT LIKE on exclusion phrasing.
type Bind struct {
	Column string
	Op     string
}

// Template is one assemblable query shape. The skeleton contains exactly one
// {{conditions}} substitution point; every value reaches the database as a
// bound parameter.
type Template struct {
	ID         string
	Intent     IntentType
	Skeleton   string
	DateColumn string // empty when the template has no time axis
	Rules      []Rule
	Binds      map[Modifier]Bind
	Required   []Modifier

	maxScore int
}

// MaxScore is the score of a full keyword match, used to normalize confidence.
// It is the sum of the template's three strongest rules so a question that
// hits the core vocabulary scores near 1.0.
func (t *Template) MaxScore() int {
	return t.maxScore
}

func (t *Template) computeMaxScore() {
	best := [3]int{}
	for _, r := range t.Rules {
		if r.Weight > best[0] {
			best[0], best[1], best[2] = r.Weight, best[0], best[1]
		} else if r.Weight > best[1] {
			best[1], best[2] = r.Weight, best[1]
		} else if r.Weight > best[2] {
			best[2] = r.Weight
		}
	}
	t.maxScore = best[0] + best[1] + best[2]
	if t.maxScore == 0 {
		t.maxScore = 1
	}
}

// Registry holds the immutable template set.
type Registry struct {
	templates []*Template
	byID      map[string]*Template
	generic   *Template
}

func NewRegistry() *Registry {
	all := buildTemplates()
	byID := make(map[string]*Template, len(all))
	var generic *Template
	for _, t := range all {
		t.computeMaxScore()
		byID[t.ID] = t
		if t.ID == "generic_fallback" {
			generic = t
		}
	}
	return &Registry{templates: all, byID: byID, generic: generic}
}

// All returns every template in declaration order.
func (r *Registry) All() []*Template {
	return r.templates
}

// Generic returns the fallback template used when no intent scores above the
// confidence threshold.
func (r *Registry) Generic() *Template {
	return r.generic
}

// ByID looks up a template by identifier.
func (r *Registry) ByID(id string) (*Template, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Count returns the number of registered templates.
func (r *Registry) Count() int {
	return len(r.templates)
}

func buildTemplates() []*Template {
	return []*Template{
		{
			ID:     "pallet_count",
			Intent: IntentCount,
			Skeleton: `SELECT COUNT(*) AS pallet_count, COALESCE(SUM(product_qty), 0) AS total_quantity ` +
				`FROM record_palletinfo WHERE {{conditions}}`,
			DateColumn: "generate_time",
			Rules: []Rule{
				{"how many pallet", 3},
				{"pallet count", 3},
				{"number of pallet", 3},
				{"count of pallet", 3},
				{"how many", 2},
				{"幾多板", 3},
				{"多少棧板", 3},
				{"多少個", 2},
				{"generated", 1},
				{"pallet", 1},
			},
			Binds: map[Modifier]Bind{
				ModifierProduct: {Column: "product_code"},
				ModifierGRN:     {Column: "plt_remark", Op: "LIKE"},
				ModifierPallet:  {Column: "plt_num"},
			},
		},
		{
			ID:     "grn_weight",
			Intent: IntentWeight,
			Skeleton: `SELECT COUNT(*) AS pallet_count, COALESCE(SUM(net_weight), 0) AS total_net_weight, ` +
				`COALESCE(SUM(gross_weight), 0) AS total_gross_weight FROM record_grn WHERE {{conditions}}`,
			DateColumn: "creat_time",
			Rules: []Rule{
				{"total weight", 3},
				{"net weight", 3},
				{"gross weight", 3},
				{"how heavy", 3},
				{"weight of", 2},
				{"重量", 3},
				{"幾重", 3},
				{"weight", 2},
				{"grn", 1},
			},
			Binds: map[Modifier]Bind{
				ModifierProduct:  {Column: "material_code"},
				ModifierSupplier: {Column: "sup_code"},
			},
		},
		{
			ID:     "grn_list",
			Intent: IntentGeneric,
			Skeleton: `SELECT grn_ref, material_code, sup_code, gross_weight, net_weight, creat_time ` +
				`FROM record_grn WHERE {{conditions}} ORDER BY creat_time DESC`,
			DateColumn: "creat_time",
			Rules: []Rule{
				{"grn record", 3},
				{"grn list", 3},
				{"list grn", 3},
				{"show grn", 3},
				{"grn receipt", 2},
				{"收貨記錄", 3},
				{"grn", 1},
			},
			Binds: map[Modifier]Bind{
				ModifierProduct:  {Column: "material_code"},
				ModifierSupplier: {Column: "sup_code"},
			},
		},
		{
			ID:     "transfer_count",
			Intent: IntentTransferHistory,
			Skeleton: `SELECT COUNT(*) AS transfer_count, COUNT(DISTINCT plt_num) AS unique_pallets ` +
				`FROM record_transfer WHERE {{conditions}}`,
			DateColumn: "tran_date",
			Rules: []Rule{
				{"how many transfer", 3},
				{"transfer count", 3},
				{"number of transfer", 3},
				{"幾多次轉移", 3},
				{"多少轉移", 3},
				{"how many", 1},
				{"transferred", 2},
				{"transfer", 2},
				{"轉移", 2},
			},
			Binds: map[Modifier]Bind{
				ModifierLocation: {Column: "t_loc"},
				ModifierPallet:   {Column: "plt_num"},
			},
		},
		{
			ID:     "transfer_list",
			Intent: IntentTransferHistory,
			Skeleton: `SELECT plt_num, operator_id, f_loc, t_loc, tran_date FROM record_transfer ` +
				`WHERE {{conditions}} ORDER BY tran_date DESC`,
			DateColumn: "tran_date",
			Rules: []Rule{
				{"transfer record", 3},
				{"transfer history", 3},
				{"which pallet transferred", 3},
				{"list transfer", 3},
				{"轉移記錄", 3},
				{"moved to", 2},
				{"transferred to", 2},
			},
			Binds: map[Modifier]Bind{
				ModifierLocation: {Column: "t_loc"},
				ModifierPallet:   {Column: "plt_num"},
				ModifierOperator: {Column: "operator_id"},
			},
		},
		{
			ID:     "pallet_history",
			Intent: IntentTransferHistory,
			Skeleton: `SELECT time, action, plt_num, loc, remark FROM record_history ` +
				`WHERE {{conditions}} ORDER BY time DESC`,
			DateColumn: "time",
			Rules: []Rule{
				{"pallet history", 3},
				{"history of pallet", 3},
				{"what happened to", 3},
				{"棧板歷史", 3},
				{"板嘅歷史", 3},
				{"history", 1},
			},
			Binds: map[Modifier]Bind{
				ModifierPallet:   {Column: "plt_num"},
				ModifierOperator: {Column: "id"},
			},
		},
		{
			ID:     "user_activity",
			Intent: IntentUserActivity,
			Skeleton: `SELECT h.id AS operator_id, d.name AS operator_name, COUNT(*) AS action_count ` +
				`FROM record_history h LEFT JOIN data_id d ON d.id = h.id WHERE {{conditions}} ` +
				`GROUP BY h.id, d.name ORDER BY action_count DESC`,
			DateColumn: "h.time",
			Rules: []Rule{
				{"who did", 3},
				{"user activity", 3},
				{"most active", 3},
				{"operator activity", 3},
				{"which user", 2},
				{"who worked", 3},
				{"邊個做", 3},
				{"誰做", 3},
				{"activity", 1},
			},
			Binds: map[Modifier]Bind{
				ModifierOperator: {Column: "h.id"},
			},
		},
		{
			ID:     "stock_ranking",
			Intent: IntentStockLevel,
			Skeleton: `SELECT product_code, total_inventory FROM (` +
				`SELECT product_code, SUM(injection + pipeline + prebook + await + fold + bulk + backcarpark) AS total_inventory ` +
				`FROM record_inventory GROUP BY product_code) t WHERE {{conditions}} ORDER BY total_inventory DESC`,
			Rules: []Rule{
				{"stock level", 3},
				{"inventory level", 3},
				{"highest stock", 3},
				{"lowest stock", 3},
				{"top products", 3},
				{"how much stock", 3},
				{"庫存", 3},
				{"存貨", 3},
				{"inventory", 2},
				{"stock", 2},
			},
			Binds: map[Modifier]Bind{
				ModifierProduct:   {Column: "product_code"},
				ModifierThreshold: {Column: "total_inventory", Op: "<"},
			},
		},
		{
			ID:     "stock_by_location",
			Intent: IntentStockLevel,
			Skeleton: `SELECT product_code, injection, pipeline, prebook, await, fold, bulk, backcarpark ` +
				`FROM record_inventory WHERE {{conditions}} ORDER BY product_code`,
			Rules: []Rule{
				{"stock in", 3},
				{"inventory in", 3},
				{"stock at", 3},
				{"what is in", 2},
				{"injection", 1},
				{"pipeline", 1},
				{"bulk room", 2},
				{"fold mill", 2},
				{"back car park", 2},
			},
			Binds: map[Modifier]Bind{
				ModifierProduct: {Column: "product_code"},
			},
			Required: []Modifier{ModifierLocation},
		},
		{
			ID:     "order_status",
			Intent: IntentOrderStatus,
			Skeleton: `SELECT order_ref, code, required_qty, remain_qty, (required_qty - remain_qty) AS completed_qty ` +
				`FROM record_aco WHERE {{conditions}} ORDER BY order_ref`,
			Rules: []Rule{
				{"order status", 3},
				{"order progress", 3},
				{"aco order", 3},
				{"outstanding order", 3},
				{"remaining quantity", 3},
				{"訂單", 3},
				{"order", 2},
				{"remain", 1},
			},
			Binds: map[Modifier]Bind{
				ModifierProduct:  {Column: "code"},
				ModifierOrderRef: {Column: "order_ref"},
			},
		},
		{
			ID:     "product_info",
			Intent: IntentGeneric,
			Skeleton: `SELECT code, description, colour, standard_qty, type FROM data_code ` +
				`WHERE {{conditions}}`,
			Rules: []Rule{
				{"what is product", 3},
				{"product info", 3},
				{"product detail", 3},
				{"description of", 3},
				{"product description", 3},
				{"產品資料", 3},
			},
			Binds: map[Modifier]Bind{
				ModifierProduct: {Column: "code"},
			},
			Required: []Modifier{ModifierProduct},
		},
		{
			ID:     "pallet_detail",
			Intent: IntentGeneric,
			Skeleton: `SELECT plt_num, product_code, product_qty, plt_remark, generate_time ` +
				`FROM record_palletinfo WHERE {{conditions}} ORDER BY generate_time DESC`,
			DateColumn: "generate_time",
			Rules: []Rule{
				{"pallet detail", 3},
				{"pallet info", 3},
				{"list pallet", 3},
				{"which pallet", 2},
				{"show pallet", 2},
				{"棧板資料", 3},
			},
			Binds: map[Modifier]Bind{
				ModifierProduct: {Column: "product_code"},
				ModifierGRN:     {Column: "plt_remark", Op: "LIKE"},
				ModifierPallet:  {Column: "plt_num"},
			},
		},
		{
			ID:     "void_count",
			Intent: IntentCount,
			Skeleton: `SELECT COUNT(*) AS pallet_count, COUNT(DISTINCT plt_num) AS unique_pallets ` +
				`FROM record_history WHERE action LIKE 'Void%' AND {{conditions}}`,
			DateColumn: "time",
			Rules: []Rule{
				{"how many void", 3},
				{"voided pallet", 3},
				{"void count", 3},
				{"were voided", 3},
				{"作廢", 3},
				{"voided", 2},
				{"void", 2},
				{"damage", 1},
			},
			Binds: map[Modifier]Bind{
				ModifierPallet:   {Column: "plt_num"},
				ModifierOperator: {Column: "id"},
			},
		},
		{
			ID:       "supplier_count",
			Intent:   IntentCount,
			Skeleton: `SELECT COUNT(*) AS supplier_count FROM data_supplier WHERE {{conditions}}`,
			Rules: []Rule{
				{"how many supplier", 3},
				{"supplier count", 3},
				{"number of supplier", 3},
				{"count of supplier", 3},
				{"幾多供應商", 3},
				{"多少供應商", 3},
			},
			Binds: map[Modifier]Bind{
				ModifierSupplier: {Column: "supplier_code"},
			},
		},
		{
			ID:     "supplier_info",
			Intent: IntentGeneric,
			Skeleton: `SELECT supplier_code, supplier_name FROM data_supplier ` +
				`WHERE {{conditions}} ORDER BY supplier_code`,
			Rules: []Rule{
				{"supplier info", 3},
				{"supplier detail", 3},
				{"which supplier", 3},
				{"supplier name", 3},
				{"list supplier", 3},
				{"供應商", 3},
				{"supplier", 2},
			},
			Binds: map[Modifier]Bind{
				ModifierSupplier: {Column: "supplier_code"},
			},
		},
		{
			ID:     "generic_fallback",
			Intent: IntentGeneric,
			Skeleton: `SELECT plt_num, product_code, product_qty, generate_time FROM record_palletinfo ` +
				`WHERE {{conditions}} ORDER BY generate_time DESC`,
			DateColumn: "generate_time",
			Rules:      []Rule{},
			Binds: map[Modifier]Bind{
				ModifierProduct: {Column: "product_code"},
				ModifierGRN:     {Column: "plt_remark", Op: "LIKE"},
				ModifierPallet:  {Column: "plt_num"},
			},
		},
	}
}
