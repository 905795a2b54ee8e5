package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
	"github.com/specialistvlad/pyxgo/internal/fatal"
	"github.com/specialistvlad/pyxgo/internal/shellexec"
	"github.com/specialistvlad/pyxgo/internal/vars"
)

var (
	assignDirective  = regexp.MustCompile(`^([\w.]+)=(.*)$`)
	bracketDirective = regexp.MustCompile(`^(\??\w+)\[(.*)\]$`)
	parenDirective   = regexp.MustCompile(`^(\??\w+)\((.*)\)$`)
	keywordArgument  = regexp.MustCompile(`^(\w+)=(.*)$`)
)

const (
	// TolerantPrefix marks a command whose failures are only warnings.
	TolerantPrefix = "?"

	escapedComma      = ",,"
	escapedCommaToken = "\x00"
)

// Command is a resolved runner command.
type Command struct {
	Name     string
	Callable vars.Callable
	// Tolerant commands report failures as warnings.
	Tolerant bool
}

// Invoke calls the command. Errors of tolerant commands are logged; any other
// error aborts the run.
func (c Command) Invoke(ctx context.Context, args []any, kwargs map[string]any) {
	err := c.Callable.Invoke(ctx, args, kwargs)
	if err == nil {
		return
	}
	if c.Tolerant {
		ctxlog.FromContext(ctx).Warn(fmt.Sprintf("'%s' failed: %v", c.Name, err))
		return
	}
	fatal.Abort(ctx, "'%s' failed: %v", c.Name, err)
}

// FindCommand resolves a command name: a callable in the Context first, then
// an executable on the search path. The name is interpolated first; a leading
// "?" makes the command failure tolerant. An unknown command aborts the run.
func (e *Engine) FindCommand(ctx context.Context, name string) Command {
	name = e.Interpolate(name)
	tolerant := strings.HasPrefix(name, TolerantPrefix)
	name = strings.TrimPrefix(name, TolerantPrefix)

	if c, ok := e.vars.Get(name, nil).(vars.Callable); ok {
		if x, isExec := c.(*shellexec.Executor); isExec && tolerant {
			c = x.WithPolicy(shellexec.Warn)
		}
		return Command{Name: name, Callable: c, Tolerant: tolerant}
	}

	factory := e.X
	if tolerant {
		factory = e.XO
	}
	x := factory.Command(e.Scope(), name)
	if x.Path() == "" {
		fatal.Abort(ctx, "undefined command '%s'", name)
	}
	return Command{Name: name, Callable: x, Tolerant: tolerant}
}

// Run executes command-line directives in order:
//
//	NAME=VALUE        assign VALUE verbatim (NAME may be ns.NAME)
//	name(a,b,k=v)     call name with arguments
//	name[a,b]         same as name(a,b)
//	name              call name without arguments
//
// A leading "?" on name makes a call failure tolerant. Inside an argument list
// ",," stands for a literal comma. Templates are resolved before the first
// directive and after every call. Consecutive assignments are applied without
// resolving in between; the next call sees their effect.
func (e *Engine) Run(ctx context.Context, commands ...string) {
	e.ResolveTemplates(ctx)
	pending := false
	for _, raw := range commands {
		command := strings.TrimSpace(raw)
		if command == "" {
			continue
		}
		ctxlog.Verbose(ctx, 1, "executing command "+command)

		if m := assignDirective.FindStringSubmatch(command); m != nil {
			e.Assign(ctx, m[1], m[2])
			pending = true
			continue
		}
		if pending {
			e.ResolveTemplates(ctx)
			pending = false
		}

		m := bracketDirective.FindStringSubmatch(command)
		if m == nil {
			m = parenDirective.FindStringSubmatch(command)
		}
		if m != nil {
			cmd := e.FindCommand(ctx, m[1])
			args, kwargs := e.parseArguments(m[2])
			cmd.Invoke(ctx, args, kwargs)
			e.ResolveTemplates(ctx)
			continue
		}

		e.FindCommand(ctx, command).Invoke(ctx, nil, nil)
		e.ResolveTemplates(ctx)
	}
}

// parseArguments splits a directive argument list into positional and keyword
// arguments. Each token is interpolated through the Context and trimmed.
// Keyword values become integers or floats when they parse as such.
func (e *Engine) parseArguments(list string) ([]any, map[string]any) {
	args := []any{}
	kwargs := map[string]any{}
	if strings.TrimSpace(list) == "" {
		return args, kwargs
	}
	list = strings.ReplaceAll(list, escapedComma, escapedCommaToken)
	for _, token := range strings.Split(list, ",") {
		token = strings.ReplaceAll(token, escapedCommaToken, ",")
		token = strings.TrimSpace(e.Interpolate(token))
		if m := keywordArgument.FindStringSubmatch(token); m != nil {
			kwargs[m[1]], _ = vars.ParseToken(m[2])
			continue
		}
		args = append(args, token)
	}
	return args, kwargs
}
