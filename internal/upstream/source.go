package upstream

import (
	"context"

	"profilegate/internal/model"
)

type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Empty() bool { return c.Username == "" || c.Password == "" }

type PostsPage struct {
	Items      []model.Post
	NextCursor string
}

// Source is the raw transport to the external backend. Implementations
// return *Error with a Kind for every failure they can recognise.
type Source interface {
	Login(ctx context.Context, creds Credentials) ([]byte, error)
	Validate(ctx context.Context, blob []byte) error
	Profile(ctx context.Context, blob []byte, identifier string) (*model.Profile, error)
	Posts(ctx context.Context, blob []byte, identifier, cursor string) (PostsPage, error)
}
