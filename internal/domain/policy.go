package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DenySID identifies the single deny statement owned by the engine inside an
// otherwise externally managed document.
const DenySID = "DailyLimitBlock"

const (
	DefaultAllowSID      = "MeteredAccess"
	DefaultPolicyVersion = "2012-10-17"
)

// DefaultMeteredActions are the operations denied while an account is blocked.
var DefaultMeteredActions = []string{
	"bedrock:InvokeModel",
	"bedrock:InvokeModelWithResponseStream",
	"bedrock:Converse",
	"bedrock:ConverseStream",
}

type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Statement keeps Sid and Effect typed and every other member as raw JSON so
// foreign statements round-trip unchanged. Members absent from the input stay
// absent on output.
type Statement struct {
	SID    string
	Effect Effect
	Fields map[string]json.RawMessage
}

func (s Statement) IsAllow() bool {
	return strings.EqualFold(string(s.Effect), string(EffectAllow))
}

func (s Statement) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Fields)+2)
	for k, v := range s.Fields {
		out[k] = v
	}
	if s.SID != "" {
		raw, err := json.Marshal(s.SID)
		if err != nil {
			return nil, err
		}
		out["Sid"] = raw
	}
	if s.Effect != "" {
		raw, err := json.Marshal(string(s.Effect))
		if err != nil {
			return nil, err
		}
		out["Effect"] = raw
	}

	return json.Marshal(out)
}

func (s *Statement) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode policy statement: %w", err)
	}

	var parsed Statement
	// An explicitly empty Sid or Effect stays in Fields so it is written back.
	if raw, ok := fields["Sid"]; ok {
		if err := json.Unmarshal(raw, &parsed.SID); err != nil {
			return fmt.Errorf("decode statement sid: %w", err)
		}
		if parsed.SID != "" {
			delete(fields, "Sid")
		}
	}
	if raw, ok := fields["Effect"]; ok {
		var effect string
		if err := json.Unmarshal(raw, &effect); err != nil {
			return fmt.Errorf("decode statement effect: %w", err)
		}
		parsed.Effect = Effect(effect)
		if effect != "" {
			delete(fields, "Effect")
		}
	}
	if len(fields) > 0 {
		parsed.Fields = fields
	}

	*s = parsed
	return nil
}

// DenyStatement builds the engine-owned deny statement.
func DenyStatement(actions []string) Statement {
	return actionStatement(DenySID, EffectDeny, actions)
}

func AllowStatement(sid string, actions []string) Statement {
	return actionStatement(sid, EffectAllow, actions)
}

func actionStatement(sid string, effect Effect, actions []string) Statement {
	if len(actions) == 0 {
		actions = DefaultMeteredActions
	}
	action, _ := json.Marshal(actions)
	return Statement{
		SID:    sid,
		Effect: effect,
		Fields: map[string]json.RawMessage{
			"Action":   action,
			"Resource": json.RawMessage(`"*"`),
		},
	}
}

type PolicyDocument struct {
	Version    string      `json:"Version,omitempty"`
	ID         string      `json:"Id,omitempty"`
	Statements []Statement `json:"Statement"`
}

// DefaultPolicyDocument is the minimal document created for an account that
// has none.
func DefaultPolicyDocument(allow Statement) PolicyDocument {
	return PolicyDocument{
		Version:    DefaultPolicyVersion,
		Statements: []Statement{allow},
	}
}

func ParsePolicyDocument(data []byte) (PolicyDocument, error) {
	var doc PolicyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return PolicyDocument{}, fmt.Errorf("decode policy document: %w", err)
	}
	return doc, nil
}

func (d PolicyDocument) Encode() ([]byte, error) {
	if d.Statements == nil {
		d.Statements = []Statement{}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode policy document: %w", err)
	}
	return data, nil
}

// WithoutSID returns a copy with every statement carrying sid removed, keeping
// the relative order of the rest.
func (d PolicyDocument) WithoutSID(sid string) PolicyDocument {
	kept := make([]Statement, 0, len(d.Statements))
	for _, stmt := range d.Statements {
		if stmt.SID == sid {
			continue
		}
		kept = append(kept, stmt)
	}
	d.Statements = kept
	return d
}

// WithFirst returns a copy with stmt prepended.
func (d PolicyDocument) WithFirst(stmt Statement) PolicyDocument {
	statements := make([]Statement, 0, len(d.Statements)+1)
	statements = append(statements, stmt)
	statements = append(statements, d.Statements...)
	d.Statements = statements
	return d
}

func (d PolicyDocument) WithLast(stmt Statement) PolicyDocument {
	statements := make([]Statement, 0, len(d.Statements)+1)
	statements = append(statements, d.Statements...)
	statements = append(statements, stmt)
	d.Statements = statements
	return d
}

func (d PolicyDocument) CountSID(sid string) int {
	n := 0
	for _, stmt := range d.Statements {
		if stmt.SID == sid {
			n++
		}
	}
	return n
}

func (d PolicyDocument) HasAllow() bool {
	for _, stmt := range d.Statements {
		if stmt.IsAllow() {
			return true
		}
	}
	return false
}

// HasLeadingDeny reports whether the engine deny statement is present exactly
// once and first.
func (d PolicyDocument) HasLeadingDeny() bool {
	return len(d.Statements) > 0 && d.Statements[0].SID == DenySID && d.CountSID(DenySID) == 1
}

// Equal compares canonical encodings.
func (d PolicyDocument) Equal(other PolicyDocument) bool {
	a, errA := d.Encode()
	b, errB := other.Encode()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}
