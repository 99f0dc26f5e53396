package engine

import (
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hooklint/hooklint/internal/graph"
	"github.com/hooklint/hooklint/internal/match"
	"github.com/hooklint/hooklint/internal/syntax"
)

// index holds the declarations every matcher may need before the traversal
// reaches them: import aliases per module, model declarations, and the signal
// registrations of each handler function.
type index struct {
	imports  map[*syntax.Node]map[string]string
	handlers map[*syntax.Node]*match.Handler
}

type funcRef struct {
	fn     *syntax.Node
	module *syntax.Node
}

// buildIndex never fails: a module whose declarations cannot be read is
// logged and contributes whatever was indexed before the fault.
func buildIndex(modules []*syntax.Node, b *graph.Builder, log hclog.Logger) *index {
	ix := &index{
		imports:  map[*syntax.Node]map[string]string{},
		handlers: map[*syntax.Node]*match.Handler{},
	}
	funcs := map[string][]funcRef{}
	type pending struct {
		reg    match.Registration
		module *syntax.Node
	}
	var connects []pending

	indexModule := func(mod *syntax.Node) {
		file := mod.Loc.File
		defer func() {
			if p := recover(); p != nil {
				log.Debug("declaration index fault", "file", file, "panic", p)
			}
		}()
		ix.imports[mod] = collectImports(mod)
		ctx := &match.Context{File: file, Imports: ix.imports[mod]}

		syntax.Inspect(mod, func(n *syntax.Node) bool {
			switch n.Kind {
			case syntax.KindClassDef:
				if m, ok := match.ParseModel(n, file); ok {
					b.DeclareModel(m)
					log.Trace("model declared", "model", m.Name, "file", file, "fields", m.FieldNames())
				}
			case syntax.KindFunctionDef:
				if n.Name != "" {
					funcs[n.Name] = append(funcs[n.Name], funcRef{fn: n, module: mod})
				}
				for _, d := range n.Decorators() {
					if reg, ok := match.ParseRegistration(d, ctx); ok {
						reg.Handler = n.Name
						ix.handler(n).Registrations = append(ix.handler(n).Registrations, reg)
					}
				}
			case syntax.KindCall:
				if reg, ok := match.ParseRegistration(n, ctx); ok && reg.Handler != "" {
					connects = append(connects, pending{reg: reg, module: mod})
				}
			}
			return true
		})
	}
	for _, mod := range modules {
		indexModule(mod)
	}

	// connect() may name a handler defined later or in another module; a
	// definition in the registering module wins.
	for _, p := range connects {
		refs := funcs[p.reg.Handler]
		if len(refs) == 0 {
			continue
		}
		target := refs[0]
		for _, r := range refs {
			if r.module == p.module {
				target = r
				break
			}
		}
		h := ix.handler(target.fn)
		h.Registrations = append(h.Registrations, p.reg)
	}
	return ix
}

func (ix *index) handler(fn *syntax.Node) *match.Handler {
	h, ok := ix.handlers[fn]
	if !ok {
		h = &match.Handler{Name: fn.Name, Instance: match.InstanceParam(fn)}
		ix.handlers[fn] = h
	}
	return h
}

// collectImports maps local names to what they refer to:
//
//	from django.dispatch import receiver as rcv  -> rcv: receiver
//	import django.db.models.signals as signals   -> signals: django.db.models.signals
func collectImports(mod *syntax.Node) map[string]string {
	out := map[string]string{}
	for _, stmt := range mod.Body() {
		if stmt.Kind != syntax.KindImport {
			continue
		}
		aliases := stmt.ChildrenOf(syntax.KindAlias)
		if len(aliases) == 0 && stmt.Name != "" {
			last := stmt.Name
			if i := strings.LastIndex(last, "."); i >= 0 {
				last = last[i+1:]
			}
			out[last] = stmt.Name
			continue
		}
		for _, a := range aliases {
			if a.Name == "" {
				continue
			}
			local := a.Name
			if a.Value != "" {
				local = a.Value
			}
			if local != a.Name {
				out[local] = a.Name
			}
		}
	}
	return out
}
