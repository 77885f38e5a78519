package depgraph

import (
	"slices"
	"testing"
)

func targets(deps []Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		out = append(out, dep.Target)
	}
	return out
}

func TestParsePython(t *testing.T) {
	src := `import os, sys as system
import app.models  # comment
from app.db import Session, engine
from . import views
from ..core import *

def f():
    import json
`
	deps := ParsePython(src, "app/api/routes.py")
	want := []string{"os", "sys", "app.models", "json", "app.db.Session", "app.db.engine", ".views", "..core"}
	if got := targets(deps); !slices.Equal(got, want) {
		t.Fatalf("targets = %v, want %v", got, want)
	}
	if deps[4].Line != 3 || deps[4].Detail != "from app.db import Session" {
		t.Fatalf("provenance = %+v", deps[4])
	}
}

func TestParseJavaScript(t *testing.T) {
	src := `import React from 'react';
import { a,
  b } from "./util";
import type { Props } from './types';
import './styles.css';
const fs = require("fs");
export { x } from '../shared/x';
const lazy = import('./lazy');
`
	deps := ParseJavaScript(src, "web/app.ts")
	want := []string{"react", "./util", "./types", "../shared/x", "./styles.css", "fs", "./lazy"}
	if got := targets(deps); !slices.Equal(got, want) {
		t.Fatalf("targets = %v, want %v", got, want)
	}
	if deps[2].Detail != "type import" {
		t.Fatalf("type import detail = %q", deps[2].Detail)
	}
}

func TestParseJava(t *testing.T) {
	src := `package com.acme.web;

import com.acme.core.Service;
import static java.util.Objects.requireNonNull;
import java.util.*;

public class Handler extends BaseHandler implements Runnable, Comparable<Handler> {
}
`
	deps := ParseJava(src, "src/com/acme/web/Handler.java")
	want := []string{"com.acme.core.Service", "java.util.Objects.requireNonNull", "java.util.*", "BaseHandler", "Runnable", "Comparable"}
	if got := targets(deps); !slices.Equal(got, want) {
		t.Fatalf("targets = %v, want %v", got, want)
	}
	if deps[3].Kind != KindExtends || deps[4].Kind != KindImplements {
		t.Fatalf("kinds = %s, %s", deps[3].Kind, deps[4].Kind)
	}
}

func TestParseGo(t *testing.T) {
	src := `package main

import "fmt"

import (
	"context"
	store "example.com/app/internal/store"
)
`
	deps := ParseGo(src, "cmd/main.go")
	want := []string{"fmt", "context", "example.com/app/internal/store"}
	if got := targets(deps); !slices.Equal(got, want) {
		t.Fatalf("targets = %v, want %v", got, want)
	}
	if deps[2].Line != 7 {
		t.Fatalf("line = %d", deps[2].Line)
	}
}

func TestParserForFallsBackToExtension(t *testing.T) {
	if ParserFor("main.go", []byte("package main\n")) == nil {
		t.Fatalf("no parser for Go")
	}
	if ParserFor("component.tsx", []byte("export const x = 1\n")) == nil {
		t.Fatalf("no parser for TSX")
	}
	if ParserFor("README.md", []byte("# readme\n")) != nil {
		t.Fatalf("parser returned for markdown")
	}
}
