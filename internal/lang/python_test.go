package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractPython(t *testing.T, source string) *FileSymbols {
	t.Helper()
	syms, err := NewPython().Extract("test.py", []byte(source))
	require.NoError(t, err)
	require.NotNil(t, syms)
	return syms
}

func TestPythonImports(t *testing.T) {
	syms := extractPython(t, `
import os
import os.path as osp
from collections import OrderedDict, defaultdict
from . import sibling
from ..pkg import thing
from os import *
`)

	require.Len(t, syms.Imports, 6)
	assert.Equal(t, "os", syms.Imports[0].Target)
	assert.Equal(t, "os.path", syms.Imports[1].Target)
	assert.Equal(t, "osp", syms.Imports[1].Alias)
	assert.Equal(t, "collections", syms.Imports[2].Target)
	assert.Equal(t, []string{"OrderedDict", "defaultdict"}, syms.Imports[2].Names)
	assert.Equal(t, ".", syms.Imports[3].Target)
	assert.Equal(t, []string{"sibling"}, syms.Imports[3].Names)
	assert.Equal(t, "..pkg", syms.Imports[4].Target)
	assert.Equal(t, []string{"*"}, syms.Imports[5].Names)
}

func TestPythonClasses(t *testing.T) {
	syms := extractPython(t, `
class Animal:
    def speak(self):
        return self.sound

class Dog(Animal):
    def speak(self):
        self.sound = "woof"
        return self.sound

    class Collar:
        def color(self):
            return "red"
`)

	require.Len(t, syms.Classes, 3)

	animal := syms.Classes[0]
	assert.Equal(t, "Animal", animal.Name)
	assert.Empty(t, animal.Bases)
	require.Len(t, animal.Methods, 1)
	assert.Equal(t, []string{"sound"}, animal.Methods[0].SelfAccess)

	dog := syms.Classes[1]
	assert.Equal(t, "Dog", dog.Name)
	assert.Equal(t, []string{"Animal"}, dog.Bases)

	nested := syms.Classes[2]
	assert.Equal(t, "Dog.Collar", nested.Name)
	require.Len(t, nested.Methods, 1)
	assert.Equal(t, "color", nested.Methods[0].Name)
}

func TestPythonAbstractDetection(t *testing.T) {
	syms := extractPython(t, `
from abc import ABC, abstractmethod

class Shape(ABC):
    @abstractmethod
    def area(self):
        ...

class Circle(Shape):
    def area(self):
        return 3

class Proto(Protocol):
    def close(self): ...
`)

	require.Len(t, syms.Classes, 3)
	assert.True(t, syms.Classes[0].IsAbstract, "ABC subclass with abstractmethod")
	assert.True(t, syms.Classes[0].Methods[0].IsAbstract)
	assert.False(t, syms.Classes[1].IsAbstract)
	assert.True(t, syms.Classes[2].IsAbstract, "Protocol base marks abstract")
}

func TestPythonFunctionsAndCalls(t *testing.T) {
	syms := extractPython(t, `
def helper(a, b, c=1):
    return a + b + c

def main():
    x = helper(1, 2)
    print(x)
    x.upper()
`)

	require.Len(t, syms.Functions, 2)

	helper := syms.Functions[0]
	assert.Equal(t, "helper", helper.Name)
	require.Len(t, helper.Params, 3)
	assert.Equal(t, "a", helper.Params[0].Name)

	main := syms.Functions[1]
	require.Len(t, main.Calls, 3)
	assert.Equal(t, "helper", main.Calls[0].Callee)
	assert.Equal(t, 2, main.Calls[0].ArgCount)
	assert.False(t, main.Calls[0].IsAttribute)
	assert.Equal(t, "print", main.Calls[1].Callee)
	assert.Equal(t, "upper", main.Calls[2].Callee)
	assert.Equal(t, "x", main.Calls[2].Receiver)
	assert.True(t, main.Calls[2].IsAttribute)
}

func TestPythonNestedFunctionCallsExcluded(t *testing.T) {
	syms := extractPython(t, `
def outer():
    def inner():
        hidden()
    visible()
`)

	require.Len(t, syms.Functions, 1)
	require.Len(t, syms.Functions[0].Calls, 1)
	assert.Equal(t, "visible", syms.Functions[0].Calls[0].Callee)
}

func TestPythonDecisionPoints(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   int
	}{
		{"straight line", "def f():\n    return 1\n", 0},
		{"single if", "def f(x):\n    if x:\n        return 1\n    return 2\n", 1},
		{"if elif else", "def f(x):\n    if x > 1:\n        return 1\n    elif x > 0:\n        return 2\n    else:\n        return 3\n", 2},
		{"nested loops", "def f(xs):\n    for x in xs:\n        for y in xs:\n            pass\n", 2},
		{"boolean operators", "def f(a, b, c):\n    if a and b or c:\n        return 1\n", 3},
		{"try except", "def f():\n    try:\n        g()\n    except ValueError:\n        pass\n", 1},
		{"ternary", "def f(x):\n    return 1 if x else 2\n", 1},
		{"nested def not counted", "def f(x):\n    def g(y):\n        if y:\n            return 1\n    return g\n", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			syms := extractPython(t, tc.source)
			require.Len(t, syms.Functions, 1)
			assert.Equal(t, tc.want, syms.Functions[0].DecisionPoints)
		})
	}
}

func TestPythonSyntaxErrorFails(t *testing.T) {
	_, err := NewPython().Extract("broken.py", []byte("def f(:\n    pass\n"))
	assert.Error(t, err)
}

func TestPythonRanges(t *testing.T) {
	syms := extractPython(t, `import os

def f():
    return 1
`)
	require.Len(t, syms.Functions, 1)
	assert.Equal(t, 3, syms.Functions[0].Range.StartLine)
	assert.Equal(t, 4, syms.Functions[0].Range.EndLine)
	assert.Equal(t, 2, syms.Functions[0].Range.Lines())
}
