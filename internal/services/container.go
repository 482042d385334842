package services

// ServiceContainer holds every service of the application.
type ServiceContainer struct {
	AuthService       AuthService
	ChatService       ChatService
	QuotaService      QuotaService
	QuotaAdminService QuotaAdminService
}
