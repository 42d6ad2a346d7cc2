package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/inventory-core/internal/application/inventory"
	"github.com/tu-usuario/inventory-core/internal/application/reservation"
	"github.com/tu-usuario/inventory-core/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	PostMovement    *inventory.PostMovementUseCase
	Transfer        *inventory.TransferUseCase
	ReverseTransfer *inventory.ReverseTransferUseCase
	Availability    *inventory.AvailabilityService
	MovementRepo    repository.MovementRepository
	ReservationUC   *reservation.UseCase
	ReservationRepo repository.ReservationRepository
	JWTSecret       string
}

// Router registra las rutas de la API. Todas las rutas requieren Bearer Token;
// las escrituras exigen además X-Idempotency-Key.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	writes := IdempotencyMiddleware()

	// Inventory (ledger, traslados, disponibilidad)
	invGroup := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.PostMovement, deps.Transfer, deps.ReverseTransfer, deps.Availability, deps.MovementRepo)
	invGroup.Post("/movements", writes, inventoryHandler.PostMovement)
	invGroup.Get("/movements", inventoryHandler.ListMovements)
	invGroup.Post("/transfers", writes, inventoryHandler.Transfer)
	invGroup.Post("/transfers/:id/reverse", writes, inventoryHandler.ReverseTransfer)
	invGroup.Get("/availability", inventoryHandler.GetAvailability)

	// Reservations (máquina de estados)
	resGroup := api.Group("/reservations")
	reservationHandler := NewReservationHandler(deps.ReservationUC, deps.ReservationRepo)
	resGroup.Post("/", writes, reservationHandler.Create)
	resGroup.Get("/:id", reservationHandler.GetByID)
	resGroup.Post("/:id/allocate", writes, reservationHandler.Allocate)
	resGroup.Post("/:id/cancel", writes, reservationHandler.Cancel)
	resGroup.Post("/:id/fulfill", writes, reservationHandler.Fulfill)
}
