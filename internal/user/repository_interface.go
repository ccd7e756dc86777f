package user

import "context"

type Repository interface {
	// Create inserts u and returns the stored row with its assigned id.
	Create(ctx context.Context, u *User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByID is also how settlement resolves recipient name and email
	// for notifications.
	FindByID(ctx context.Context, id int) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
