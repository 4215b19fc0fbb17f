package repo

import (
	"encoding/json"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// fieldRule validates one top-level checkpoint field and decodes it into the
// document. A missing or invalid field decodes its default instead
type fieldRule struct {
	name   string
	schema string
	def    string
	decode func(raw json.RawMessage, d *document) error
}

const (
	stringList  = `{"type":"array","items":{"type":"string"}}`
	intMap      = `{"type":"object","additionalProperties":{"type":"integer"}}`
	nestedInt   = `{"type":"object","additionalProperties":{"type":"object","additionalProperties":{"type":"integer"}}}`
	objectMap   = `{"type":"object","additionalProperties":{"type":"object"}}`
	tupleMap    = `{"type":"object","additionalProperties":{"type":"array","items":{"type":"array"}}}`
	plainString = `{"type":"string"}`
	anyValue    = `{}`
)

// profileSchema guards each profile entry individually
const profileSchema = `{
	"type": "object",
	"required": ["username"],
	"properties": {
		"username": {"type": "string", "minLength": 1},
		"followers": {"type": "integer", "minimum": 0},
		"following": {"type": "integer", "minimum": 0},
		"public_repos": {"type": "integer", "minimum": 0},
		"public_gists": {"type": "integer", "minimum": 0},
		"languages": {"type": ["array", "null"], "items": {"type": "string"}},
		"repos_appeared_in": {"type": ["array", "null"], "items": {"type": "string"}},
		"prs_merged": {"type": "integer"},
		"evaluation": {"type": ["object", "null"]}
	}
}`

func into[T any](dst func(*document) *T) func(json.RawMessage, *document) error {
	return func(raw json.RawMessage, d *document) error { return json.Unmarshal(raw, dst(d)) }
}

var fieldRules = []fieldRule{
	{"timestamp", plainString, `""`, into(func(d *document) *string { return &d.Timestamp })},
	{"run_id", plainString, `""`, into(func(d *document) *string { return &d.RunID })},
	{"analyzed_users", stringList, `[]`, into(func(d *document) *[]string { return &d.AnalyzedUsers })},
	{"analyzed_repositories", stringList, `[]`, into(func(d *document) *[]string { return &d.AnalyzedRepos })},
	{"profiles", objectMap, `{}`, into(func(d *document) *map[string]json.RawMessage { return &d.Profiles })},
	{"pr_merger_stats", intMap, `{}`, into(func(d *document) *map[string]int { return &d.MergeCounts })},
	{"pr_merger_details", tupleMap, `{}`, decodeTuples},
	{"contributor_stats", nestedInt, `{}`, into(func(d *document) *map[string]map[string]int { return &d.ContributorStats })},
	{"all_users", stringList, `[]`, into(func(d *document) *[]string { return &d.AllUsers })},
	{"remaining_users", stringList, `[]`, into(func(d *document) *[]string { return &d.RemainingUsers })},
	{"rate_limit_info", anyValue, `{}`, into(func(d *document) *any { return &d.RateLimitInfo })},
	{"repo_tiers", intMap, `{}`, into(func(d *document) *map[string]int { return &d.RepoTiers })},
}

// decodeTuples keeps the well formed [repo, count, tier] entries of each user
func decodeTuples(raw json.RawMessage, d *document) error {
	var byUser map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &byUser); err != nil {
		return err
	}
	d.MergeDetails = make(map[string][]mergeTuple, len(byUser))
	for u, items := range byUser {
		for _, it := range items {
			var t mergeTuple
			if err := json.Unmarshal(it, &t); err != nil {
				continue
			}
			d.MergeDetails[u] = append(d.MergeDetails[u], t)
		}
	}
	return nil
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	profileSch  *gojsonschema.Schema
)

// schemas compiles every rule once. The schemas are constants so a compile
// failure is a programming error
func schemas() (map[string]*gojsonschema.Schema, *gojsonschema.Schema) {
	compileOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema, len(fieldRules))
		for _, r := range fieldRules {
			compiled[r.name] = mustSchema(r.schema)
		}
		profileSch = mustSchema(profileSchema)
	})
	return compiled, profileSch
}

func mustSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic("checkpoint schema: " + err.Error())
	}
	return sch
}

// validate returns the schema violations of raw, nil when valid
func validate(sch *gojsonschema.Schema, raw json.RawMessage) []string {
	res, err := sch.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return []string{err.Error()}
	}
	if res.Valid() {
		return nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	return out
}
