package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compmap/internal/mapsearch"
	"github.com/sells-group/compmap/internal/store"
)

// openStore validates the config for mode, connects and, when migrate is set,
// ensures the schema exists. Callers must Close the store.
func openStore(ctx context.Context, mode string, migrate bool) (store.Store, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}
	return st, nil
}

func newEngine(st store.Store, options ...mapsearch.Option) *mapsearch.Engine {
	return mapsearch.New(st, cfg.Map, options...)
}
