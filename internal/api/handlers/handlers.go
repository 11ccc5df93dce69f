package handlers

import (
	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/api/handlers/common"
	"github/chapool/go-keyring/internal/api/handlers/stealth"
	"github/chapool/go-keyring/internal/api/handlers/wallet"
)

// AttachAllRoutes registers every handler on the router groups of s.
func AttachAllRoutes(s *api.Server) []*echo.Route {
	return []*echo.Route{
		common.GetReadyRoute(s),
		wallet.PostCreateWalletRoute(s),
		wallet.GetWalletListRoute(s),
		wallet.GetMainWalletRoute(s),
		wallet.GetWalletRoute(s),
		wallet.DeleteWalletRoute(s),
		wallet.PostSignRoute(s),
		stealth.PostCreateStealthRoute(s),
		stealth.GetStealthPublicKeyRoute(s),
		stealth.PostGenerateStealthRoute(s),
		stealth.PostOpenStealthRoute(s),
	}
}
