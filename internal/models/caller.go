package models

import "context"

const (
	RoleAdmin  = "admin"
	RoleTenant = "tenant"
)

// Caller - аутентифицированный пользователь, от имени которого выполняется операция.
type Caller struct {
	ID      string   `json:"id"`
	Roles   []string `json:"roles"`
	Tenants []string `json:"tenants"`
}

// HasRole проверяет наличие роли у пользователя.
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Privileged сообщает, что пользователь - администратор.
func (c Caller) Privileged() bool {
	return c.HasRole(RoleAdmin)
}

// MemberOf проверяет членство пользователя в магазине.
func (c Caller) MemberOf(tenantID string) bool {
	for _, t := range c.Tenants {
		if t == tenantID {
			return true
		}
	}
	return false
}

// FirstTenant возвращает первый магазин пользователя, если он есть.
func (c Caller) FirstTenant() *string {
	if len(c.Tenants) == 0 {
		return nil
	}
	tenant := c.Tenants[0]
	return &tenant
}

type callerKey struct{}

// WithCaller кладёт пользователя в контекст запроса.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom достаёт пользователя из контекста запроса.
func CallerFrom(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}
