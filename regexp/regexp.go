package regexp

import (
	stdlib "regexp"

	gore2 "github.com/wasilibs/go-re2"
)

// engine is satisfied by both *stdlib.Regexp and *gore2.Regexp.
type engine interface {
	MatchString(s string) bool
	FindString(s string) string
	FindStringIndex(s string) []int
	FindAllStringIndex(s string, n int) [][]int
	String() string
}

// Regexp wraps a compiled regular expression. It is a concrete struct
// so that *Regexp works as a normal pointer (not pointer-to-interface).
type Regexp struct{ e engine }

func (r *Regexp) MatchString(s string) bool {
	return r.e.MatchString(s)
}
func (r *Regexp) FindString(s string) string {
	return r.e.FindString(s)
}
func (r *Regexp) FindStringIndex(s string) []int {
	return r.e.FindStringIndex(s)
}
func (r *Regexp) FindAllStringIndex(s string, n int) [][]int {
	return r.e.FindAllStringIndex(s, n)
}
func (r *Regexp) String() string {
	return r.e.String()
}

var currentEngine = "stdlib"

// Version returns the name of the active regex engine.
func Version() string { return currentEngine }

// SetEngine selects the regex engine used by subsequent compiles.
func SetEngine(name string) {
	switch name {
	case "stdlib", "re2":
		currentEngine = name
	default:
		panic("regexp: unknown engine: " + name)
	}
}

// Compile compiles a regular expression using the currently selected engine.
func Compile(str string) (*Regexp, error) {
	var (
		impl engine
		err  error
	)
	if currentEngine == "re2" {
		impl, err = gore2.Compile(str)
	} else {
		impl, err = stdlib.Compile(str)
	}
	if err != nil {
		return nil, err
	}
	return &Regexp{e: impl}, nil
}

// MustCompile is like Compile but panics on an invalid expression.
func MustCompile(str string) *Regexp {
	r, err := Compile(str)
	if err != nil {
		panic(err)
	}
	return r
}
