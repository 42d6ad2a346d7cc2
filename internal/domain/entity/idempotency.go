package entity

import "time"

// Estados del registro de idempotencia. PENDING marca un intento en vuelo o
// muerto a mitad de transacción; COMPLETED guarda el resultado del primer
// intento exitoso para que los reintentos lo devuelvan sin reaplicar efectos.
const (
	IdempotencyStatusPENDING   = "PENDING"
	IdempotencyStatusCOMPLETED = "COMPLETED"
)

// IdempotencyRecord clave (tenant, operación, clave de idempotencia) con la
// huella del request y el resultado de la primera ejecución exitosa.
type IdempotencyRecord struct {
	ID          string
	TenantID    string
	Operation   string
	Key         string
	Fingerprint string // SHA-256 del payload canónico
	Status      string
	Result      []byte // JSON del resultado; nil mientras PENDING
	CreatedAt   time.Time
	CompletedAt *time.Time
}
