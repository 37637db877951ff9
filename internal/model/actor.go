package model

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of actor kinds. Every authorization branch
// switches exhaustively over these three values.
type Role int

const (
	RoleSuperAdmin Role = iota
	RoleProjectManager
	RoleClient
)

// Wire representations used in handshake payloads and stored documents.
const (
	roleSuperAdminWire     = "super_admin"
	roleProjectManagerWire = "project_manager"
	roleClientWire         = "client"
)

// ParseRole maps a wire string to a Role. Unknown strings are an error,
// never a default role.
func ParseRole(s string) (Role, error) {
	switch s {
	case roleSuperAdminWire:
		return RoleSuperAdmin, nil
	case roleProjectManagerWire:
		return RoleProjectManager, nil
	case roleClientWire:
		return RoleClient, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleSuperAdmin:
		return roleSuperAdminWire
	case RoleProjectManager:
		return roleProjectManagerWire
	case RoleClient:
		return roleClientWire
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// MarshalJSON emits the wire string so clients never see the numeric form.
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

func (r *Role) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("role must be a JSON string, got %s", b)
	}
	parsed, err := ParseRole(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Actor represents a user document in MongoDB. Role is immutable for the
// lifetime of a session.
type Actor struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ActorID     string             `json:"actorId" bson:"actor_id"`
	DisplayName string             `json:"displayName" bson:"display_name"`
	Email       string             `json:"email" bson:"email"`
	Avatar      string             `json:"avatar" bson:"avatar"`
	Role        string             `json:"role" bson:"role"`
	IsActive    bool               `json:"isActive" bson:"is_active"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   *time.Time         `json:"updatedAt" bson:"updated_at"`
}

// Identity is the resolved (id, role) pair carried through every access
// decision and every websocket session.
type Identity struct {
	ActorID string `json:"actorId"`
	Role    Role   `json:"role"`
}
