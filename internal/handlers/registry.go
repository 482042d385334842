package handlers

// AppHandlers holds every handler of the application.
type AppHandlers struct {
	AuthHandler  *AuthHandler
	ChatHandler  *ChatHandler
	QuotaHandler *QuotaHandler
	AdminHandler *AdminHandler
}
