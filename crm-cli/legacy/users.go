package legacy

import (
	"context"
	"strings"
)

type UserInput struct {
	Nombre string
	Correo string
	Rol    string
}

func (in UserInput) normalize() (User, error) {
	u := User{
		Nombre: strings.TrimSpace(in.Nombre),
		Correo: strings.TrimSpace(in.Correo),
		Rol:    strings.TrimSpace(in.Rol),
	}
	if u.Nombre == "" || u.Correo == "" {
		return u, ErrUserFields
	}
	if u.Rol == "" {
		u.Rol = DefaultRole
	}
	return u, nil
}

func (s *Store) AddUser(ctx context.Context, in UserInput) (*User, error) {
	user, err := in.normalize()
	if err != nil {
		return nil, err
	}
	user.ID = s.newID()
	users := append(append([]User(nil), s.Users...), user)
	if err := persist(ctx, s.kv, KeyUsers, users); err != nil {
		return nil, err
	}
	s.Users = users
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, id ID, in UserInput) (*User, error) {
	idx := s.userIndex(id)
	if idx < 0 {
		return nil, ErrUserNotFound
	}
	user, err := in.normalize()
	if err != nil {
		return nil, err
	}
	user.ID = id
	users := append([]User(nil), s.Users...)
	users[idx] = user
	if err := persist(ctx, s.kv, KeyUsers, users); err != nil {
		return nil, err
	}
	s.Users = users
	return &user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id ID) error {
	idx := s.userIndex(id)
	if idx < 0 {
		return ErrUserNotFound
	}
	users := make([]User, 0, len(s.Users)-1)
	users = append(users, s.Users[:idx]...)
	users = append(users, s.Users[idx+1:]...)
	if err := persist(ctx, s.kv, KeyUsers, users); err != nil {
		return err
	}
	s.Users = users
	return nil
}

func (s *Store) userIndex(id ID) int {
	for i, u := range s.Users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
