package handlers

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/internal/config"
	"storefront/internal/docstore"
	"storefront/internal/panel"
	"storefront/internal/repos"
	"storefront/internal/services"
)

type Deps struct {
	Auth     *services.AuthService
	Sessions *panel.Sessions

	AuthHandler    *AuthHandler
	ProductHandler *ProductHandler
	BrandHandler   *BrandHandler
	StoreHandler   *StoreHandler
}

// NewDeps wires repositories, the session registry and the handlers. ctx is
// the parent of every screen's subscriptions.
func NewDeps(ctx context.Context, cfg config.Config, db *sqlx.DB, docs *docstore.Store, lookup panel.PostalLookup) *Deps {
	userRepo := repos.NewUserRepo(db)
	productRepo := repos.NewProductRepo(docs)
	brandRepo := repos.NewBrandRepo(docs)

	sessions := panel.NewSessions(ctx, cfg.SessionIdle,
		func() *panel.ProductScreen {
			return panel.NewProductScreen(productRepo, brandRepo, panel.NewFlash(cfg.MessageTTL))
		},
		func() *panel.StoreScreen { return panel.NewStoreScreen(lookup) },
	)
	authSvc := &services.AuthService{Users: userRepo, Screens: sessions}

	return &Deps{
		Auth:           authSvc,
		Sessions:       sessions,
		AuthHandler:    &AuthHandler{Auth: authSvc, CookieSecure: cfg.CookieSecure},
		ProductHandler: &ProductHandler{Sessions: sessions},
		BrandHandler:   &BrandHandler{Brands: brandRepo},
		StoreHandler:   &StoreHandler{Sessions: sessions},
	}
}
