package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/drcal/pkg/config"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms macro source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: check-overlap -> check_overlap
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: a bare flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// only rejects keywords outside allowed.
func (pa kwArgs) only(fn string, allowed ...string) error {
	var unknown []string
	for name := range pa.kw {
		found := false
		for _, a := range allowed {
			if a == name {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, ":"+name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%s: unknown option %s", fn, strings.Join(unknown, ", "))
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean. A bare flag (nil value) counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_grid) and plain strings ("grid").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// setters apply keyword values to fields of the config under construction.
type setters map[string]func(zygo.Sexp) error

func floatField(dst *float64) func(zygo.Sexp) error {
	return func(s zygo.Sexp) error {
		f, err := toFloat64(s)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func intField(dst *int) func(zygo.Sexp) error {
	return func(s zygo.Sexp) error {
		n, err := toInt(s)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func boolField(dst *bool) func(zygo.Sexp) error {
	return func(s zygo.Sexp) error {
		b, err := toBool(s)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

// apply checks the keywords of pa against set and runs each setter in
// name order.
func (set setters) apply(fn string, pa kwArgs) error {
	allowed := make([]string, 0, len(set))
	for name := range set {
		allowed = append(allowed, name)
	}
	if err := pa.only(fn, allowed...); err != nil {
		return err
	}
	names := make([]string, 0, len(pa.kw))
	for name := range pa.kw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := set[name](pa.kw[name]); err != nil {
			return fmt.Errorf("%s: %s: %w", fn, name, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the macro builtins into a zygomys environment.
// Each builtin overrides fields of cfg and returns nil.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, cfg *config.Config) {

	// -----------------------------------------------------------------------
	// (layout :wedge)
	// (layout :grid :rows 2 :columns 2 :module-width 24 :module-height 24)
	// -----------------------------------------------------------------------
	env.AddFunction("layout", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("layout requires a kind (:wedge or :grid)")
		}
		kind, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("layout: kind: %w", err)
		}
		if kind != config.LayoutWedge && kind != config.LayoutGrid {
			return zygo.SexpNull, fmt.Errorf("layout: unknown kind %q, expected wedge or grid", kind)
		}
		pa := parseArgs(args[1:])
		if kind == config.LayoutWedge && len(pa.kw) > 0 {
			return zygo.SexpNull, fmt.Errorf("layout: the wedge layout takes no options")
		}

		l := cfg.Layout
		l.Kind = kind
		err = setters{
			"rows":          intField(&l.Rows),
			"columns":       intField(&l.Columns),
			"module-width":  floatField(&l.ModuleWidth),
			"module-height": floatField(&l.ModuleHeight),
		}.apply("layout", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		cfg.Layout = l
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (tower :depth 500 :front 0 :half-offset-a 7.5 :half-offset-b 15)
	// -----------------------------------------------------------------------
	env.AddFunction("tower", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		t := cfg.Tower
		err := setters{
			"depth":         floatField(&t.Depth),
			"front":         floatField(&t.Front),
			"half-offset-a": floatField(&t.HalfOffsetA),
			"half-offset-b": floatField(&t.HalfOffsetB),
		}.apply("tower", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		cfg.Tower = t
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (pitch 1.5)
	// -----------------------------------------------------------------------
	env.AddFunction("pitch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("pitch requires exactly 1 argument, got %d", len(args))
		}
		p, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pitch: %w", err)
		}
		cfg.Fiber.Pitch = p
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (fiber :clad-radius 0.5 :length 1000 :invert-classes false
	//        :check-overlap true)
	// -----------------------------------------------------------------------
	env.AddFunction("fiber", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		f := cfg.Fiber
		err := setters{
			"clad-radius":           floatField(&f.CladRadius),
			"cherenkov-core-radius": floatField(&f.CherenkovCoreRadius),
			"scint-core-radius":     floatField(&f.ScintCoreRadius),
			"length":                floatField(&f.Length),
			"sample-inset":          floatField(&f.SampleInset),
			"invert-classes":        boolField(&f.InvertClasses),
			"check-overlap":         boolField(&f.CheckOverlap),
		}.apply("fiber", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		cfg.Fiber = f
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (toggle :fiber true :reflector false :sensor true :place true)
	// -----------------------------------------------------------------------
	env.AddFunction("toggle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		t := cfg.Toggles
		err := setters{
			"fiber":     boolField(&t.Fiber),
			"reflector": boolField(&t.Reflector),
			"sensor":    boolField(&t.Sensor),
			"place":     boolField(&t.Place),
		}.apply("toggle", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		cfg.Toggles = t
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (sensor :addressing :index :columns 14 :rows 11)
	// -----------------------------------------------------------------------
	env.AddFunction("sensor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		s := cfg.Sensor
		err := setters{
			"addressing": func(v zygo.Sexp) error {
				mode, err := toKeywordString(v)
				if err != nil {
					return err
				}
				if mode != config.AddressingCoordinate && mode != config.AddressingIndex {
					return fmt.Errorf("unknown mode %q, expected coordinate or index", mode)
				}
				s.Addressing = mode
				return nil
			},
			"columns": intField(&s.Columns),
			"rows":    intField(&s.Rows),
		}.apply("sensor", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		cfg.Sensor = s
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (thickness :pmt 0.3 :filter 0.01 :reflector 0.03 :cell 1.2)
	// -----------------------------------------------------------------------
	env.AddFunction("thickness", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		l := cfg.Layers
		err := setters{
			"pmt":       floatField(&l.PMT),
			"filter":    floatField(&l.Filter),
			"reflector": floatField(&l.Reflector),
			"cell":      floatField(&l.Cell),
		}.apply("thickness", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		cfg.Layers = l
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (workers 8)
	// -----------------------------------------------------------------------
	env.AddFunction("workers", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("workers requires exactly 1 argument, got %d", len(args))
		}
		n, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("workers: %w", err)
		}
		cfg.Workers = n
		return zygo.SexpNull, nil
	})
}
