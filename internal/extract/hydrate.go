package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// evalInlineState runs the page's inline scripts in a sandboxed JS VM and
// captures a `window.__NEXT_DATA__ = {...}` style assignment. It covers
// pages where the state is set from JavaScript instead of being rendered
// into the dedicated JSON script tag.
func evalInlineState(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	vm := goja.New()

	// Minimal browser shims, just enough for state-assignment snippets.
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{})
	vm.Set("console", map[string]interface{}{
		"log":   func(call goja.FunctionCall) goja.Value { return nil },
		"error": func(call goja.FunctionCall) goja.Value { return nil },
	})

	doc.Find("script:not([src])").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.Text()
		if !strings.Contains(src, "__NEXT_DATA__") {
			return true
		}
		if _, err := vm.RunString(src); err != nil {
			log.Debug().Err(err).Msg("Inline script evaluation failed")
		}
		return !hasNextData(vm)
	})

	if !hasNextData(vm) {
		return "", false
	}

	exported := vm.Get("__NEXT_DATA__").Export()
	raw, err := json.Marshal(exported)
	if err != nil {
		log.Debug().Err(err).Msg("Captured state not serializable")
		return "", false
	}

	log.Debug().Int("bytes", len(raw)).Msg("Hydration state captured from inline script")
	return string(raw), true
}

func hasNextData(vm *goja.Runtime) bool {
	v := vm.Get("__NEXT_DATA__")
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}
