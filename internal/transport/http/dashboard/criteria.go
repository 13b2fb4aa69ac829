package dashboardhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"tradelens/internal/metrics"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const dateLayout = "2006-01-02"

// formMarker is sent by the dashboard form. When present, an absent symbol or
// type list means the user cleared every option, not "no restriction".
const formMarker = "filtered"

var errBadParam = errors.New("bad request parameter")

func paramError(name, raw, reason string) error {
	return fmt.Errorf("%w: %s=%q %s", errBadParam, name, raw, reason)
}

// criteriaFromQuery reads symbol/type (repeatable), from/to and the two
// outcome toggles.
func criteriaFromQuery(q url.Values, loc *time.Location) (metrics.Criteria, error) {
	var c metrics.Criteria
	fromForm := q.Has(formMarker)
	if vals, ok := q["symbol"]; ok || fromForm {
		c.Symbols = metrics.NewSet(vals...)
	}
	if vals, ok := q["type"]; ok || fromForm {
		c.EntryTypes = metrics.NewSet(vals...)
	}
	var err error
	if c.From, err = parseDate("from", q.Get("from"), loc); err != nil {
		return metrics.Criteria{}, err
	}
	if c.To, err = parseDate("to", q.Get("to"), loc); err != nil {
		return metrics.Criteria{}, err
	}
	if c.OnlyWinners, err = parseFlag("winners", q.Get("winners")); err != nil {
		return metrics.Criteria{}, err
	}
	if c.OnlyRejected, err = parseFlag("rejected", q.Get("rejected")); err != nil {
		return metrics.Criteria{}, err
	}
	return c, nil
}

// encodeCriteria is the inverse of criteriaFromQuery, used to carry the
// current selection into chart URLs. Unrestricted lists are spelled out from
// the facets so the form marker can always be set.
func encodeCriteria(c metrics.Criteria, f metrics.Facets) url.Values {
	q := url.Values{}
	q.Set(formMarker, "1")
	symbols := c.Symbols
	if symbols == nil {
		symbols = metrics.NewSet(f.Symbols...)
	}
	types := c.EntryTypes
	if types == nil {
		types = metrics.NewSet(f.EntryTypes...)
	}
	for _, s := range symbols.Values() {
		q.Add("symbol", s)
	}
	for _, t := range types.Values() {
		q.Add("type", t)
	}
	if !c.From.IsZero() {
		q.Set("from", c.From.Format(dateLayout))
	}
	if !c.To.IsZero() {
		q.Set("to", c.To.Format(dateLayout))
	}
	if c.OnlyWinners {
		q.Set("winners", "1")
	}
	if c.OnlyRejected {
		q.Set("rejected", "1")
	}
	return q
}

func parseDate(name, raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, paramError(name, raw, "is not a YYYY-MM-DD date")
	}
	return t, nil
}

func parseFlag(name, raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "off", "no":
		return false, nil
	case "1", "true", "on", "yes":
		return true, nil
	default:
		return false, paramError(name, raw, "is not a boolean")
	}
}

// queryRequest is the JSON form of Criteria. A missing or null list leaves
// that dimension unrestricted; an empty list matches nothing.
type queryRequest struct {
	Symbols      []string `json:"symbols"`
	EntryTypes   []string `json:"entry_types"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	OnlyWinners  bool     `json:"only_winners"`
	OnlyRejected bool     `json:"only_rejected"`
}

const querySchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "symbols":       {"type": ["array", "null"], "items": {"type": "string"}},
    "entry_types":   {"type": ["array", "null"], "items": {"type": "string"}},
    "from":          {"type": "string", "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"},
    "to":            {"type": "string", "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"},
    "only_winners":  {"type": "boolean"},
    "only_rejected": {"type": "boolean"}
  }
}`

func compileQuerySchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("query.json", strings.NewReader(querySchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("query.json")
}

// decodeQuery checks syntax with gjson, shape with the schema, then decodes.
func decodeQuery(raw []byte, schema *jsonschema.Schema, loc *time.Location) (metrics.Criteria, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return metrics.Criteria{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return metrics.Criteria{}, fmt.Errorf("%w: body is not valid json", errBadParam)
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return metrics.Criteria{}, fmt.Errorf("%w: body must be a json object", errBadParam)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return metrics.Criteria{}, fmt.Errorf("%w: %v", errBadParam, err)
	}
	if err := schema.Validate(doc); err != nil {
		return metrics.Criteria{}, fmt.Errorf("%w: %v", errBadParam, err)
	}
	var req queryRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return metrics.Criteria{}, fmt.Errorf("%w: %v", errBadParam, err)
	}
	c := metrics.Criteria{OnlyWinners: req.OnlyWinners, OnlyRejected: req.OnlyRejected}
	if req.Symbols != nil {
		c.Symbols = metrics.NewSet(req.Symbols...)
	}
	if req.EntryTypes != nil {
		c.EntryTypes = metrics.NewSet(req.EntryTypes...)
	}
	var err error
	if c.From, err = parseDate("from", req.From, loc); err != nil {
		return metrics.Criteria{}, err
	}
	if c.To, err = parseDate("to", req.To, loc); err != nil {
		return metrics.Criteria{}, err
	}
	return c, nil
}
