package document

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/wellnessdb/internal/types"
)

// fakeStore is an in-memory stand-in for the record store REST API. It mimics the
// parts of the real service the adapter depends on: blank cells are omitted from
// responses, linked records expose a "User Record ID" lookup, lists paginate with an
// offset token and filterByFormula is evaluated for the formula subset the adapter
// emits.
type fakeStore struct {
	mu       sync.Mutex
	tables   map[string][]*fakeRecord
	seq      int
	apiKey   string
	failures []int
	delay    time.Duration
	requests int
	formulas []string

	url string
}

type fakeRecord struct {
	id      string
	created time.Time
	fields  map[string]any
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()

	f := &fakeStore{tables: make(map[string][]*fakeRecord), apiKey: "test-key"}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(f.middleware)
	app.Get("/v0/:base/:table", f.list)
	app.Get("/v0/:base/:table/:id", f.get)
	app.Post("/v0/:base/:table", f.create)
	app.Patch("/v0/:base/:table/:id", f.update)
	app.Delete("/v0/:base/:table/:id", f.remove)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	f.url = "http://" + ln.Addr().String() + "/v0"
	return f
}

func (f *fakeStore) options() Options {
	return Options{BaseURL: f.url, BaseID: "appTest", APIKey: f.apiKey, RateLimit: 1000, Timeout: 2 * time.Second}
}

func (f *fakeStore) failNext(statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, statuses...)
}

func (f *fakeStore) setDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

func (f *fakeStore) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeStore) lastFormula() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.formulas) == 0 {
		return ""
	}
	return f.formulas[len(f.formulas)-1]
}

func (f *fakeStore) middleware(c *fiber.Ctx) error {
	f.mu.Lock()
	f.requests++
	delay := f.delay
	var status int
	if len(f.failures) > 0 {
		status, f.failures = f.failures[0], f.failures[1:]
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if c.Get(fiber.HeaderAuthorization) != "Bearer "+f.apiKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": fiber.Map{"type": "AUTHENTICATION_REQUIRED", "message": "bad key"}})
	}
	if status != 0 {
		return c.Status(status).JSON(fiber.Map{"error": fiber.Map{"type": "INJECTED", "message": "injected failure"}})
	}
	return c.Next()
}

func tableParam(c *fiber.Ctx) string {
	name, err := url.PathUnescape(c.Params("table"))
	if err != nil {
		return c.Params("table")
	}
	return name
}

func (f *fakeStore) wire(r *fakeRecord) fiber.Map {
	return fiber.Map{"id": r.id, "createdTime": r.created.Format(time.RFC3339Nano), "fields": r.fields}
}

func (f *fakeStore) find(table, id string) *fakeRecord {
	for _, r := range f.tables[table] {
		if r.id == id {
			return r
		}
	}
	return nil
}

// record returns a copy of the stored cells of a record, or nil.
func (f *fakeStore) record(table, id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(table, id)
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "NOT_FOUND"})
}

func (f *fakeStore) get(c *fiber.Ctx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(tableParam(c), c.Params("id"))
	if r == nil {
		return notFound(c)
	}
	return c.JSON(f.wire(r))
}

type fakeWrite struct {
	Fields map[string]any `json:"fields"`
}

func (f *fakeStore) create(c *fiber.Ctx) error {
	var body fakeWrite
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "INVALID_REQUEST_BODY"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	r := &fakeRecord{id: fmt.Sprintf("rec%014d", f.seq), created: time.Now().UTC(), fields: map[string]any{}}
	apply(r.fields, body.Fields)
	table := tableParam(c)
	f.tables[table] = append(f.tables[table], r)
	return c.JSON(f.wire(r))
}

func (f *fakeStore) update(c *fiber.Ctx) error {
	var body fakeWrite
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "INVALID_REQUEST_BODY"})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(tableParam(c), c.Params("id"))
	if r == nil {
		return notFound(c)
	}
	apply(r.fields, body.Fields)
	return c.JSON(f.wire(r))
}

func (f *fakeStore) remove(c *fiber.Ctx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := tableParam(c)
	id := c.Params("id")
	for i, r := range f.tables[table] {
		if r.id == id {
			f.tables[table] = append(f.tables[table][:i], f.tables[table][i+1:]...)
			return c.JSON(fiber.Map{"id": id, "deleted": true})
		}
	}
	return notFound(c)
}

// apply merges written cells, dropping blank values the way the real store does.
func apply(dst, src map[string]any) {
	for k, v := range src {
		if blank(v) {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	if user, ok := dst["User"]; ok {
		dst["User Record ID"] = user
	} else {
		delete(dst, "User Record ID")
	}
}

func blank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	}
	return false
}

func (f *fakeStore) list(c *fiber.Ctx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	formula := c.Query("filterByFormula")
	f.formulas = append(f.formulas, formula)
	var expr node
	if formula != "" {
		var err error
		if expr, err = parseFormula(formula); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": fiber.Map{"type": "INVALID_FILTER_BY_FORMULA", "message": err.Error()}})
		}
	}

	var matched []*fakeRecord
	for _, r := range f.tables[tableParam(c)] {
		if expr == nil || truthy(expr.eval(r)) {
			matched = append(matched, r)
		}
	}

	for i := 3; i >= 0; i-- {
		field := c.Query(fmt.Sprintf("sort[%d][field]", i))
		if field == "" {
			continue
		}
		desc := c.Query(fmt.Sprintf("sort[%d][direction]", i)) == "desc"
		sort.SliceStable(matched, func(a, b int) bool {
			less := compare(matched[a].fields[field], matched[b].fields[field]) < 0
			if desc {
				return compare(matched[a].fields[field], matched[b].fields[field]) > 0
			}
			return less
		})
	}

	if max := c.QueryInt("maxRecords"); max > 0 && len(matched) > max {
		matched = matched[:max]
	}

	start := 0
	if off := c.Query("offset"); off != "" {
		start, _ = strconv.Atoi(strings.TrimPrefix(off, "itr"))
	}
	size := c.QueryInt("pageSize", 100)
	end := min(start+size, len(matched))

	records := make([]fiber.Map, 0, end-start)
	for _, r := range matched[start:end] {
		records = append(records, f.wire(r))
	}
	resp := fiber.Map{"records": records}
	if end < len(matched) {
		resp["offset"] = "itr" + strconv.Itoa(end)
	}
	return c.JSON(resp)
}

// Formula evaluation

type node interface {
	eval(r *fakeRecord) any
}

type fieldNode string
type literalNode struct{ v any }
type callNode struct {
	name string
	args []node
}
type cmpNode struct {
	op   string
	l, r node
}

func (n fieldNode) eval(r *fakeRecord) any   { return r.fields[string(n)] }
func (n literalNode) eval(r *fakeRecord) any { return n.v }

func (n cmpNode) eval(r *fakeRecord) any {
	c := compare(n.l.eval(r), n.r.eval(r))
	switch n.op {
	case "=":
		return c == 0
	case "!=":
		return c != 0
	case ">=":
		return c >= 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case "<":
		return c < 0
	}
	return false
}

func (n callNode) eval(r *fakeRecord) any {
	switch n.name {
	case "AND":
		for _, a := range n.args {
			if !truthy(a.eval(r)) {
				return false
			}
		}
		return true
	case "OR":
		for _, a := range n.args {
			if truthy(a.eval(r)) {
				return true
			}
		}
		return false
	case "NOT":
		return !truthy(n.args[0].eval(r))
	case "TRUE":
		return true
	case "FALSE":
		return false
	case "BLANK":
		return nil
	case "RECORD_ID":
		return r.id
	case "ARRAYJOIN":
		items, _ := n.args[0].eval(r).([]any)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	case "IS_SAME":
		a, aok := asTime(n.args[0].eval(r))
		b, bok := asTime(n.args[1].eval(r))
		if !aok || !bok {
			return false
		}
		if len(n.args) > 2 && n.args[2].eval(r) == "day" {
			return types.TruncateDay(a).Equal(types.TruncateDay(b))
		}
		return a.Equal(b)
	case "IS_BEFORE":
		a, aok := asTime(n.args[0].eval(r))
		b, bok := asTime(n.args[1].eval(r))
		return aok && bok && a.Before(b)
	case "IS_AFTER":
		a, aok := asTime(n.args[0].eval(r))
		b, bok := asTime(n.args[1].eval(r))
		return aok && bok && a.After(b)
	}
	panic("unsupported formula function " + n.name)
}

func asTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(types.DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	}
	return true
}

// compare orders blanks first, then numbers, then strings.
func compare(a, b any) int {
	if blank(a) && blank(b) {
		return 0
	}
	if blank(a) {
		return -1
	}
	if blank(b) {
		return 1
	}
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok && ab == bb {
			return 0
		}
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

type formulaParser struct {
	s   string
	pos int
}

func parseFormula(s string) (node, error) {
	p := &formulaParser{s: s}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skip()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("unexpected %q at %d", p.s[p.pos:], p.pos)
	}
	return n, nil
}

func (p *formulaParser) skip() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *formulaParser) expr() (node, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}
	p.skip()
	for _, op := range []string{">=", "<=", "!=", "=", ">", "<"} {
		if strings.HasPrefix(p.s[p.pos:], op) {
			p.pos += len(op)
			right, err := p.primary()
			if err != nil {
				return nil, err
			}
			return cmpNode{op: op, l: left, r: right}, nil
		}
	}
	return left, nil
}

func (p *formulaParser) primary() (node, error) {
	p.skip()
	if p.pos >= len(p.s) {
		return nil, fmt.Errorf("unexpected end of formula")
	}
	switch ch := p.s[p.pos]; {
	case ch == '{':
		var b strings.Builder
		p.pos++
		for p.pos < len(p.s) && p.s[p.pos] != '}' {
			if p.s[p.pos] == '\\' {
				p.pos++
			}
			b.WriteByte(p.s[p.pos])
			p.pos++
		}
		p.pos++
		return fieldNode(b.String()), nil

	case ch == '\'':
		var b strings.Builder
		p.pos++
		for p.pos < len(p.s) && p.s[p.pos] != '\'' {
			if p.s[p.pos] == '\\' {
				p.pos++
			}
			b.WriteByte(p.s[p.pos])
			p.pos++
		}
		p.pos++
		return literalNode{v: b.String()}, nil

	case ch == '-' || (ch >= '0' && ch <= '9'):
		start := p.pos
		p.pos++
		for p.pos < len(p.s) && (p.s[p.pos] == '.' || (p.s[p.pos] >= '0' && p.s[p.pos] <= '9')) {
			p.pos++
		}
		f, err := strconv.ParseFloat(p.s[start:p.pos], 64)
		if err != nil {
			return nil, err
		}
		return literalNode{v: f}, nil

	case ch >= 'A' && ch <= 'Z':
		start := p.pos
		for p.pos < len(p.s) && (p.s[p.pos] == '_' || (p.s[p.pos] >= 'A' && p.s[p.pos] <= 'Z')) {
			p.pos++
		}
		call := callNode{name: p.s[start:p.pos]}
		p.skip()
		if p.pos >= len(p.s) || p.s[p.pos] != '(' {
			return nil, fmt.Errorf("expected ( after %s", call.name)
		}
		p.pos++
		for {
			p.skip()
			if p.pos < len(p.s) && p.s[p.pos] == ')' {
				p.pos++
				return call, nil
			}
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			call.args = append(call.args, arg)
			p.skip()
			if p.pos < len(p.s) && p.s[p.pos] == ',' {
				p.pos++
			}
		}
	}
	return nil, fmt.Errorf("unexpected %q at %d", p.s[p.pos], p.pos)
}
