// Package main is a plugin that taps a key combination for chosen
// interaction events, for example a space bar press on a two-hand pinch.
//
// Bindings come from the manifest config:
//
//	{"bindings": {"both_pinch_edge": {"key": "space"}, "press": {"key": "a", "modifiers": ["shift"]}}}
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-vgo/robotgo"
)

// Request is the input from the plugin executor.
type Request struct {
	Event struct {
		Kind string `json:"kind"`
		Role string `json:"role"`
	} `json:"event"`
	Config json.RawMessage `json:"config"`
}

// Response is the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Binding is one key combination.
type Binding struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // cmd, alt, ctrl, shift
}

type config struct {
	Bindings map[string]Binding `json:"bindings"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	binding, err := lookup(req)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}
	if binding == nil {
		writeResponse(Response{Success: true})
		return
	}

	if err := tap(*binding); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("tap %s: %v", binding.Key, err)})
		return
	}
	data, _ := json.Marshal(map[string]string{"tapped": binding.Key})
	writeResponse(Response{Success: true, Data: data})
}

// lookup returns the binding for the event kind, or nil if none is set.
func lookup(req Request) (*Binding, error) {
	if len(req.Config) == 0 {
		return nil, fmt.Errorf("no bindings configured")
	}
	var cfg config
	if err := json.Unmarshal(req.Config, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	b, ok := cfg.Bindings[req.Event.Kind]
	if !ok {
		return nil, nil
	}
	if b.Key == "" {
		return nil, fmt.Errorf("binding for %s has no key", req.Event.Kind)
	}
	return &b, nil
}

func tap(b Binding) error {
	args := make([]interface{}, len(b.Modifiers))
	for i, m := range b.Modifiers {
		args[i] = m
	}
	return robotgo.KeyTap(b.Key, args...)
}

func writeResponse(resp Response) {
	if err := json.NewEncoder(os.Stdout).Encode(resp); err != nil {
		fmt.Fprintf(os.Stderr, "write response: %v\n", err)
		os.Exit(1)
	}
}
