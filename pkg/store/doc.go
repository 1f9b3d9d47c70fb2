// Package store provides the strategy storage collaborators the
// orchestrator loads compiled strategies from.
//
// Three backends are available:
//
//   - MemoryStore keeps documents in memory and is used by tests and
//     embedded callers.
//   - FileStore reads YAML or JSON documents from a file or directory.
//   - SQLiteStore keeps documents in the compiled_strategies table.
//
// Every backend answers the same Query: the active strategies of one
// organization, optionally restricted to a set of names:
//
//	st := store.NewFileStore("strategies/", logger)
//	engines, err := st.ActiveStrategies(ctx, store.Query{Organization: "acme"})
//
// # Hot-Reload
//
// Watcher observes a strategy directory with fsnotify and calls a reload
// callback once changes settle:
//
//	w, err := store.NewWatcher(store.DefaultWatcherConfig("strategies/"), logger)
//	go w.Watch(ctx, func() error {
//	    _, err := orch.Reload(ctx)
//	    return err
//	})
package store
