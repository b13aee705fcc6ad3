package service

import (
	"fmt"
	"regexp"
	"strings"
)

// rfidPattern — contrato del identificador físico: exactamente 24
// caracteres alfanuméricos en mayúsculas.
var rfidPattern = regexp.MustCompile(`^[A-Z0-9]{24}$`)

// NormalizarRFID pasa el rfid a mayúsculas y valida el contrato de formato.
// Se aplica antes de cualquier búsqueda o escritura.
func NormalizarRFID(rfid string) (string, error) {
	normalizado := strings.ToUpper(strings.TrimSpace(rfid))
	if !rfidPattern.MatchString(normalizado) {
		return "", fmt.Errorf("%w: rfid %q no cumple el formato de 24 caracteres A-Z0-9", ErrValidation, rfid)
	}
	return normalizado, nil
}
