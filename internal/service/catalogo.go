package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/retornaloop/inventario/central-module/internal/domain/model"
	"github.com/retornaloop/inventario/central-module/internal/repository"
)

// CatalogoCache — vista cacheada del catálogo de particiones.
// Se puebla en el primer uso y no se invalida: las particiones se
// aprovisionan rara vez y el único refresco es el reinicio del proceso.
// Esa ausencia de invalidación es una decisión explícita, no un descuido.
type CatalogoCache struct {
	repo repository.CatalogoRepository

	mu      sync.RWMutex
	cargado bool
	tenants []*model.Tenant
	porID   map[int64]*model.Tenant
}

// NewCatalogoCache crea la caché del catálogo sobre el repositorio.
func NewCatalogoCache(repo repository.CatalogoRepository) *CatalogoCache {
	return &CatalogoCache{repo: repo}
}

// Activos devuelve los tenants activos, cargando el catálogo la primera vez.
func (c *CatalogoCache) Activos(ctx context.Context) ([]*model.Tenant, error) {
	c.mu.RLock()
	if c.cargado {
		tenants := c.tenants
		c.mu.RUnlock()
		return tenants, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cargado {
		return c.tenants, nil
	}

	tenants, err := c.repo.ListActivos(ctx)
	if err != nil {
		return nil, fmt.Errorf("error al cargar el catálogo de particiones: %w", err)
	}

	porID := make(map[int64]*model.Tenant, len(tenants))
	for _, t := range tenants {
		porID[t.ID] = t
	}

	c.tenants = tenants
	c.porID = porID
	c.cargado = true
	return tenants, nil
}

// PorID devuelve un tenant activo por ID o ErrNotFound.
func (c *CatalogoCache) PorID(ctx context.Context, id int64) (*model.Tenant, error) {
	if _, err := c.Activos(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.porID[id]
	if !ok {
		return nil, fmt.Errorf("%w: tenant %d no existe o está inactivo", ErrNotFound, id)
	}
	return t, nil
}

// esNotFound distingue los ErrNotFound de servicio y repositorio del
// resto de errores.
func esNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, repository.ErrNotFound)
}
