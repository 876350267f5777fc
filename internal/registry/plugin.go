//go:build linux

package registry

import (
	"plugin"

	hashpipe "github.com/hashpipe/hashpipe-go"
)

// pluginInitFunc is the symbol every dynamically-loaded worker module
// exports; calling it must Register the module's descriptor(s).
const pluginInitFunc = "Hashpipe_plugin_init"

// LoadPlugin opens a shared object at path and calls its
// Hashpipe_plugin_init export, which is expected to call Register for
// every worker it provides. The registry's own built-in workers instead
// register themselves via a package init() — LoadPlugin exists for parity
// with the supervisor's historical dynamic-loading CLI surface; no test in
// this repository depends on the loading mechanism itself.
func LoadPlugin(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return hashpipe.WrapError("registry", "LoadPlugin", hashpipe.ErrKindParameter, err)
	}
	sym, err := p.Lookup(pluginInitFunc)
	if err != nil {
		return hashpipe.WrapError("registry", "LoadPlugin", hashpipe.ErrKindParameter, err)
	}
	initFn, ok := sym.(func())
	if !ok {
		return hashpipe.NewError("registry", "LoadPlugin", hashpipe.ErrKindParameter, path+": Hashpipe_plugin_init has the wrong signature")
	}
	initFn()
	return nil
}
