package schema

import (
	"fmt"
	"strings"

	"repolens/internal/types"
)

type checker struct {
	errors   []string
	warnings []string
}

func (c *checker) fail(msg string) { c.errors = append(c.errors, msg) }
func (c *checker) warn(msg string) { c.warnings = append(c.warnings, msg) }

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// object returns m[key] as an object. A missing required object is recorded
// once and its children are not checked.
func (c *checker) object(m map[string]any, path, key string) (map[string]any, bool) {
	p := join(path, key)
	raw, ok := m[key]
	if !ok || raw == nil {
		c.fail(missing(p))
		return nil, false
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		c.fail(invalid(p, "expected object, got "+kind(raw)))
		return nil, false
	}
	return obj, true
}

// array returns m[key] as an array. minLen > 0 makes the field required.
func (c *checker) array(m map[string]any, path, key string, minLen int) ([]any, bool) {
	p := join(path, key)
	raw, ok := m[key]
	if !ok || raw == nil {
		if minLen > 0 {
			c.fail(missing(p))
		}
		return nil, false
	}
	arr, ok := raw.([]any)
	if !ok {
		c.fail(invalid(p, "expected array, got "+kind(raw)))
		return nil, false
	}
	if len(arr) < minLen {
		c.fail(invalid(p, fmt.Sprintf("expected at least %d item(s)", minLen)))
		return arr, false
	}
	return arr, true
}

// str checks m[key] is a string. Required strings must be present; nonEmpty
// also rejects blank values.
func (c *checker) str(m map[string]any, path, key string, required, nonEmpty bool) (string, bool) {
	p := join(path, key)
	raw, ok := m[key]
	if !ok || raw == nil {
		if required {
			c.fail(missing(p))
		}
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		c.fail(invalid(p, "expected string, got "+kind(raw)))
		return "", false
	}
	if nonEmpty && strings.TrimSpace(s) == "" {
		c.fail(invalid(p, "must not be empty"))
		return "", false
	}
	return s, true
}

func (c *checker) boolean(m map[string]any, path, key string) {
	p := join(path, key)
	raw, ok := m[key]
	if !ok || raw == nil {
		c.warn(fmt.Sprintf("%s not provided, assuming false", p))
		return
	}
	if _, ok := raw.(bool); !ok {
		c.fail(invalid(p, "expected boolean, got "+kind(raw)))
	}
}

// stringList checks an array of strings. required=true means the key must exist.
func (c *checker) stringList(m map[string]any, path, key string, required bool) {
	p := join(path, key)
	raw, ok := m[key]
	if !ok || raw == nil {
		if required {
			c.fail(missing(p))
		}
		return
	}
	arr, ok := raw.([]any)
	if !ok {
		c.fail(invalid(p, "expected array of strings, got "+kind(raw)))
		return
	}
	for i, item := range arr {
		if _, ok := item.(string); !ok {
			c.fail(invalid(fmt.Sprintf("%s[%d]", p, i), "expected string, got "+kind(item)))
		}
	}
}

func (c *checker) items(arr []any, path string, fn func(obj map[string]any, itemPath string)) {
	for i, raw := range arr {
		p := fmt.Sprintf("%s[%d]", path, i)
		obj, ok := raw.(map[string]any)
		if !ok {
			c.fail(invalid(p, "expected object, got "+kind(raw)))
			continue
		}
		fn(obj, p)
	}
}

func (c *checker) repo(root map[string]any) {
	repo, ok := c.object(root, "", "repo")
	if !ok {
		return
	}
	c.str(repo, "repo", "name", true, true)
	c.str(repo, "repo", "description", true, false)
	c.str(repo, "repo", "purpose", true, false)
}

func (c *checker) stack(root map[string]any) {
	stack, ok := c.object(root, "", "stack")
	if !ok {
		return
	}
	c.stringList(stack, "stack", "languages", true)
	c.stringList(stack, "stack", "frameworks", true)
	c.str(stack, "stack", "buildSystem", false, false)
	c.str(stack, "stack", "packageManager", false, false)
	c.boolean(stack, "stack", "hasDocker")
	c.boolean(stack, "stack", "hasCI")
}

func (c *checker) architecture(root map[string]any) {
	arch, ok := c.object(root, "", "architecture")
	if !ok {
		return
	}
	c.str(arch, "architecture", "summary", true, true)
	if _, ok := c.str(arch, "architecture", "dataFlow", false, false); !ok {
		if _, present := arch["dataFlow"]; !present {
			c.warn("architecture.dataFlow not provided")
		}
	}
	comps, ok := c.array(arch, "architecture", "components", 1)
	if !ok {
		return
	}
	c.items(comps, "architecture.components", func(obj map[string]any, p string) {
		c.str(obj, p, "name", true, true)
		c.str(obj, p, "path", true, false)
		c.str(obj, p, "description", true, false)
	})
}

func (c *checker) keyFiles(root map[string]any) {
	files, ok := c.array(root, "", "keyFiles", 1)
	if !ok {
		return
	}
	c.items(files, "keyFiles", func(obj map[string]any, p string) {
		c.str(obj, p, "path", true, true)
		c.str(obj, p, "purpose", true, false)
	})
}

func (c *checker) commands(root map[string]any) {
	raw, present := root["commands"]
	if !present || raw == nil {
		c.fail(missing("commands"))
		return
	}
	cmds, ok := c.array(root, "", "commands", 0)
	if !ok {
		return
	}
	if len(cmds) == 0 {
		c.warn("commands is empty")
	}
	c.items(cmds, "commands", func(obj map[string]any, p string) {
		c.str(obj, p, "name", true, true)
		c.str(obj, p, "command", true, true)
		c.str(obj, p, "description", false, false)
	})
}

func (c *checker) firstTasks(root map[string]any) {
	tasks, ok := c.array(root, "", "firstTasks", 1)
	if !ok {
		return
	}
	allowed := make([]string, len(types.Difficulties))
	for i, d := range types.Difficulties {
		allowed[i] = string(d)
	}
	c.items(tasks, "firstTasks", func(obj map[string]any, p string) {
		c.str(obj, p, "title", true, true)
		c.str(obj, p, "description", true, false)

		dp := join(p, "difficulty")
		switch d := obj["difficulty"].(type) {
		case nil:
			c.fail(missing(dp))
		case string:
			if !contains(allowed, d) {
				c.fail(enum(dp, allowed, d))
			}
		default:
			c.fail(enum(dp, allowed, d))
		}

		if _, present := obj["files"]; !present {
			c.warn(join(p, "files") + " not provided")
		} else {
			c.stringList(obj, p, "files", false)
		}
	})
}

func (c *checker) optionalStrings(root map[string]any, key string) {
	c.stringList(root, "", key, false)
}

func (c *checker) glossary(root map[string]any) {
	terms, ok := c.array(root, "", "glossary", 0)
	if !ok {
		return
	}
	c.items(terms, "glossary", func(obj map[string]any, p string) {
		c.str(obj, p, "term", true, true)
		c.str(obj, p, "definition", true, false)
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
