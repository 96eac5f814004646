package handlers

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	derrors "git.home.luguber.info/inful/prdflow/internal/errors"
	"git.home.luguber.info/inful/prdflow/internal/notify"
	"git.home.luguber.info/inful/prdflow/internal/store"
)

// Handlers bundles the public endpoint handlers and their collaborators.
type Handlers struct {
	store        store.Store
	notifier     *notify.Notifier
	errorAdapter *derrors.HTTPErrorAdapter
	validate     *validator.Validate
}

// New constructs the handler set.
func New(st store.Store, n *notify.Notifier) *Handlers {
	return &Handlers{
		store:        st,
		notifier:     n,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}
