package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://beltgrid.ai/schemas/"

var schemaFiles = map[string]string{
	TypeHello:     "hello.schema.json",
	TypeWelcome:   "welcome.schema.json",
	TypeCmd:       "cmd.schema.json",
	TypeResult:    "result.schema.json",
	TypeSubscribe: "subscribe.schema.json",
	TypeFrame:     "frame.schema.json",
}

// Validator checks raw messages against the embedded JSON Schemas.
// It is safe for concurrent use once built.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	names, err := fs.Glob(schemaFS, "schemas/*.schema.json")
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		b, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+path.Base(name), bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", path.Base(name), err)
		}
	}
	v := &Validator{byType: make(map[string]*jsonschema.Schema, len(schemaFiles))}
	for typ, file := range schemaFiles {
		s, err := c.Compile(schemaBaseURL + file)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", file, err)
		}
		v.byType[typ] = s
	}
	return v, nil
}

// Validate decodes raw and checks it against the schema for msgType.
func (v *Validator) Validate(msgType string, raw []byte) error {
	s := v.byType[msgType]
	if s == nil {
		return fmt.Errorf("no schema for message type %q", msgType)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", msgType, err)
	}
	return s.Validate(doc)
}

// ValidateValue marshals msg and validates it, mainly for outbound messages in tests.
func (v *Validator) ValidateValue(msgType string, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return v.Validate(msgType, b)
}
