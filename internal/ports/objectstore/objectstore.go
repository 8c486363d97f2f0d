package objectstore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("object not found")

// ObjectStore abstrae el almacenamiento de archivos (fotos de mascotas,
// documentos veterinarios). El backend real es un colaborador externo;
// acá solo se consume la interfaz.
type ObjectStore interface {
	// Put sube un objeto y devuelve la URL pública resultante.
	Put(ctx context.Context, path, contentType string, r io.Reader) (string, error)

	// Delete borra un objeto. Borrar algo inexistente no es error.
	Delete(ctx context.Context, path string) error
}
