package config

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
)

// Load evaluates the config file and decodes the returned table. An empty
// configPath selects the default path; a missing default file yields
// Default(), but an explicitly specified file must exist.
func Load(configPath string) (*Config, error) {
	explicit := configPath != ""

	if explicit {
		configPath = ExpandTilde(configPath)
		info, err := os.Stat(configPath)
		if err != nil || info.IsDir() {
			return nil, fmt.Errorf("the specified config path is not a file: %s", configPath)
		}
	} else {
		var err error
		configPath, err = DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine config path: %w", err)
		}
		if _, err := os.Stat(configPath); err != nil {
			return Default(), nil
		}
	}

	return evalFile(configPath)
}

// evalFile runs the Lua chunk and decodes its return value. The config file's
// directory is prepended to package.path so config files can require siblings.
func evalFile(configPath string) (*Config, error) {
	L := lua.NewState()
	defer L.Close()

	configDir := filepath.Dir(configPath)

	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua state has no package table")
	}
	searchPath := lua.LVAsString(L.GetField(pkg, "path"))
	L.SetField(pkg, "path", lua.LString(fmt.Sprintf(
		"%s/?.lua;%s/?/init.lua;%s", configDir, configDir, searchPath)))

	if err := L.DoFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to evaluate config %s: %w", configPath, err)
	}

	ret := L.Get(-1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("config %s must return a table, got %s", configPath, ret.Type())
	}

	return decodeConfig(tbl)
}

func decodeConfig(tbl *lua.LTable) (*Config, error) {
	cfg := &Config{}

	locations, err := stringOrList(tbl.RawGetString("crate_locations"), "crate_locations")
	if err != nil {
		return nil, err
	}
	cfg.CrateLocations = locations

	if v := tbl.RawGetString("shell_caching"); v != lua.LNil {
		sc, ok := v.(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("shell_caching: expected table, got %s", v.Type())
		}
		source, err := requiredString(sc, "source", "shell_caching")
		if err != nil {
			return nil, err
		}
		destination, err := requiredString(sc, "destination", "shell_caching")
		if err != nil {
			return nil, err
		}
		cfg.ShellCaching = &ShellCache{Source: source, Destination: destination}
	}

	if v := tbl.RawGetString("tmux"); v != lua.LNil {
		tm, ok := v.(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("tmux: expected table, got %s", v.Type())
		}
		tmux, err := decodeTmux(tm)
		if err != nil {
			return nil, err
		}
		cfg.Tmux = tmux
	}

	return cfg, nil
}

func decodeTmux(tbl *lua.LTable) (*Tmux, error) {
	tmux := &Tmux{}

	if v := tbl.RawGetString("default_session"); v != lua.LNil {
		s, ok := v.(lua.LString)
		if !ok {
			return nil, fmt.Errorf("tmux.default_session: expected string, got %s", v.Type())
		}
		tmux.DefaultSession = string(s)
	}

	if v := tbl.RawGetString("sessions"); v != lua.LNil {
		list, ok := v.(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("tmux.sessions: expected table, got %s", v.Type())
		}
		for i := 1; i <= list.Len(); i++ {
			entry, ok := list.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("tmux.sessions[%d]: expected table", i)
			}
			session, err := decodeSession(entry, i)
			if err != nil {
				return nil, err
			}
			tmux.Sessions = append(tmux.Sessions, session)
		}
	}

	return tmux, nil
}

func decodeSession(tbl *lua.LTable, index int) (Session, error) {
	where := fmt.Sprintf("tmux.sessions[%d]", index)

	name, err := requiredString(tbl, "name", where)
	if err != nil {
		return Session{}, err
	}
	session := Session{Name: name}

	if v := tbl.RawGetString("windows"); v != lua.LNil {
		list, ok := v.(*lua.LTable)
		if !ok {
			return Session{}, fmt.Errorf("%s.windows: expected table, got %s", where, v.Type())
		}
		for i := 1; i <= list.Len(); i++ {
			entry, ok := list.RawGetInt(i).(*lua.LTable)
			if !ok {
				return Session{}, fmt.Errorf("%s.windows[%d]: expected table", where, i)
			}
			window, err := decodeWindow(entry, fmt.Sprintf("%s.windows[%d]", where, i))
			if err != nil {
				return Session{}, err
			}
			session.Windows = append(session.Windows, window)
		}
	}

	return session, nil
}

func decodeWindow(tbl *lua.LTable, where string) (Window, error) {
	name, err := requiredString(tbl, "name", where)
	if err != nil {
		return Window{}, err
	}
	window := Window{Name: name}

	if v := tbl.RawGetString("path"); v != lua.LNil {
		s, ok := v.(lua.LString)
		if !ok {
			return Window{}, fmt.Errorf("%s.path: expected string, got %s", where, v.Type())
		}
		window.Path = ExpandTilde(string(s))
	}

	commands, err := stringOrList(tbl.RawGetString("command"), where+".command")
	if err != nil {
		return Window{}, err
	}
	window.Command = commands

	if v := tbl.RawGetString("env"); v != lua.LNil {
		env, ok := v.(*lua.LTable)
		if !ok {
			return Window{}, fmt.Errorf("%s.env: expected table, got %s", where, v.Type())
		}
		window.Env = map[string]string{}
		var envErr error
		env.ForEach(func(k, val lua.LValue) {
			key, keyOK := k.(lua.LString)
			value, valOK := val.(lua.LString)
			if !keyOK || !valOK {
				envErr = fmt.Errorf("%s.env: keys and values must be strings", where)
				return
			}
			window.Env[string(key)] = string(value)
		})
		if envErr != nil {
			return Window{}, envErr
		}
	}

	crates, err := stringOrList(tbl.RawGetString("linked_crates"), where+".linked_crates")
	if err != nil {
		return Window{}, err
	}
	window.LinkedCrates = crates

	return window, nil
}

// stringOrList accepts either a bare string or a list of strings; nil yields
// a nil slice.
func stringOrList(v lua.LValue, where string) ([]string, error) {
	switch value := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		return []string{string(value)}, nil
	case *lua.LTable:
		var out []string
		for i := 1; i <= value.Len(); i++ {
			item, ok := value.RawGetInt(i).(lua.LString)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected string", where, i)
			}
			out = append(out, string(item))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected string or list of strings, got %s", where, v.Type())
	}
}

func requiredString(tbl *lua.LTable, key, where string) (string, error) {
	v := tbl.RawGetString(key)
	s, ok := v.(lua.LString)
	if !ok {
		return "", fmt.Errorf("%s.%s: expected string, got %s", where, key, v.Type())
	}
	return string(s), nil
}
