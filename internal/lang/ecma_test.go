package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJavaScriptImportsAndFunctions(t *testing.T) {
	syms, err := NewJavaScript().Extract("app.js", []byte(`
import fs from "fs";
import { join, resolve } from "path";
import * as util from "util";

function greet(name) {
  return "hi " + name;
}

const shout = (msg) => {
  console.log(msg);
  greet(msg);
};
`))
	require.NoError(t, err)

	require.Len(t, syms.Imports, 3)
	assert.Equal(t, "fs", syms.Imports[0].Target)
	assert.Equal(t, []string{"fs"}, syms.Imports[0].Names)
	assert.Equal(t, "path", syms.Imports[1].Target)
	assert.Equal(t, []string{"join", "resolve"}, syms.Imports[1].Names)
	assert.Equal(t, "util", syms.Imports[2].Alias)

	require.Len(t, syms.Functions, 2)
	assert.Equal(t, "greet", syms.Functions[0].Name)
	assert.Equal(t, "shout", syms.Functions[1].Name)
	require.Len(t, syms.Functions[1].Calls, 2)
	assert.Equal(t, "log", syms.Functions[1].Calls[0].Callee)
	assert.Equal(t, "console", syms.Functions[1].Calls[0].Receiver)
	assert.Equal(t, "greet", syms.Functions[1].Calls[1].Callee)
}

func TestJavaScriptClasses(t *testing.T) {
	syms, err := NewJavaScript().Extract("shape.js", []byte(`
class Shape {
  area() {
    return 0;
  }
}

export class Circle extends Shape {
  constructor(r) {
    this.r = r;
  }
  area() {
    return 3.14 * this.r * this.r;
  }
}
`))
	require.NoError(t, err)

	require.Len(t, syms.Classes, 2)
	circle := syms.Classes[1]
	assert.Equal(t, "Circle", circle.Name)
	assert.Equal(t, []string{"Shape"}, circle.Bases)
	require.Len(t, circle.Methods, 2)
	assert.Contains(t, circle.Methods[1].SelfAccess, "r")
}

func TestTypeScriptInterfaces(t *testing.T) {
	syms, err := NewTypeScript().Extract("store.ts", []byte(`
import { Logger } from "./logger";

interface Store {
  get(key: string): string;
  put(key: string, value: string): void;
}

export class MemStore implements Store {
  private items = new Map<string, string>();

  get(key: string): string {
    return this.items.get(key) ?? "";
  }

  put(key: string, value: string): void {
    this.items.set(key, value);
  }
}
`))
	require.NoError(t, err)

	require.Len(t, syms.Classes, 2)
	iface := syms.Classes[0]
	assert.Equal(t, "Store", iface.Name)
	assert.True(t, iface.IsAbstract)
	require.Len(t, iface.Methods, 2)
	assert.True(t, iface.Methods[0].IsAbstract)

	mem := syms.Classes[1]
	assert.Equal(t, "MemStore", mem.Name)
	assert.Contains(t, mem.Bases, "Store")
}

func TestJavaScriptSyntaxErrorFails(t *testing.T) {
	_, err := NewJavaScript().Extract("broken.js", []byte("function f( {\n"))
	assert.Error(t, err)
}
