package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"micro-crm/backend/utils/logging"
	"micro-crm/crm-cli/kvstore"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrRequiredFields  = fmt.Errorf("%w: nombre, empresa, correo and direccion are required", ErrValidation)
	ErrInvalidEmail    = fmt.Errorf("%w: invalid email address", ErrValidation)
	ErrDuplicateEmail  = fmt.Errorf("%w: a client with that email already exists", ErrValidation)
	ErrUserFields      = fmt.Errorf("%w: nombre and correo are required", ErrValidation)
	ErrClientNotFound  = errors.New("client not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrUserNotFound    = errors.New("user not found")

	// ErrUnreadableCollection blocks loading so a later write cannot replace
	// stored data that failed to decode.
	ErrUnreadableCollection = errors.New("stored collection is unreadable")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Store holds the three collections in memory. Every mutation persists the
// affected collections first and only then replaces the in-memory slices.
type Store struct {
	kv    kvstore.KV
	newID func() ID
	now   func() time.Time

	Clients  []Client
	Projects []Project
	Users    []User
}

// Open loads every collection, migrating legacy records without ids.
func Open(ctx context.Context, kv kvstore.KV) (*Store, error) {
	return open(ctx, kv, NewID, time.Now)
}

func open(ctx context.Context, kv kvstore.KV, newID func() ID, now func() time.Time) (*Store, error) {
	s := &Store{kv: kv, newID: newID, now: now}

	var err error
	if s.Clients, err = loadCollection[Client](ctx, kv, KeyClients, newID); err != nil {
		return nil, err
	}
	if s.Projects, err = loadCollection[Project](ctx, kv, KeyProjects, newID); err != nil {
		return nil, err
	}
	if s.Users, err = loadCollection[User](ctx, kv, KeyUsers, newID); err != nil {
		return nil, err
	}
	return s, nil
}

type identified[T any] interface {
	*T
	recordID() *ID
}

// loadCollection assigns ids to records that lack one. An id of 0 counts as
// missing. The migrated collection is written back only when the stored
// collection was non-empty and its first record had no id.
func loadCollection[T any, PT identified[T]](ctx context.Context, kv kvstore.KV, key string, newID func() ID) ([]T, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	items := []T{}
	if !ok || strings.TrimSpace(raw) == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logging.Logger.Errorf("Event ID: LEGACY_DECODE_FAILED, Description: Refusing to load %s: %v", key, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableCollection, key, err)
	}

	firstLacksID := len(items) > 0 && missingID(*PT(&items[0]).recordID())
	for i := range items {
		if id := PT(&items[i]).recordID(); missingID(*id) {
			*id = newID()
		}
	}

	if firstLacksID {
		if err := persist(ctx, kv, key, items); err != nil {
			return nil, err
		}
		logging.Logger.Infof("Event ID: LEGACY_MIGRATED, Description: Assigned ids to %d %s records", len(items), key)
	}
	return items, nil
}

func missingID(id ID) bool { return id == "" || id == "0" }

func persist[T any](ctx context.Context, kv kvstore.KV, key string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, string(data))
}

// ClientInput is the client form. Project is only used when creating.
type ClientInput struct {
	Nombre    string
	Empresa   string
	Correo    string
	Telefono  string
	Direccion string
	Project   *ProjectInput
}

type ProjectInput struct {
	Nombre string
	Valor  float64
	Etapa  string
}

// SaveClient creates a client when editingID is empty, otherwise replaces the
// client with that id. A new client may bring a linked project with it.
func (s *Store) SaveClient(ctx context.Context, in ClientInput, editingID ID) (*Client, error) {
	client := Client{
		Nombre:    strings.TrimSpace(in.Nombre),
		Empresa:   strings.TrimSpace(in.Empresa),
		Correo:    strings.TrimSpace(in.Correo),
		Telefono:  strings.TrimSpace(in.Telefono),
		Direccion: strings.TrimSpace(in.Direccion),
	}
	if client.Nombre == "" || client.Empresa == "" || client.Correo == "" || client.Direccion == "" {
		return nil, ErrRequiredFields
	}
	if !emailPattern.MatchString(client.Correo) {
		return nil, ErrInvalidEmail
	}
	if s.IsDuplicateEmail(client.Correo, editingID) {
		return nil, ErrDuplicateEmail
	}

	if editingID != "" {
		idx := s.clientIndex(editingID)
		if idx < 0 {
			return nil, ErrClientNotFound
		}
		client.ID = editingID
		clients := append([]Client(nil), s.Clients...)
		clients[idx] = client
		if err := persist(ctx, s.kv, KeyClients, clients); err != nil {
			return nil, err
		}
		s.Clients = clients
		return &client, nil
	}

	client.ID = s.newID()
	clients := append(append([]Client(nil), s.Clients...), client)
	projects := s.Projects
	if in.Project != nil && strings.TrimSpace(in.Project.Nombre) != "" {
		linked := client.ID
		projects = append(append([]Project(nil), s.Projects...), s.newProject(*in.Project, &linked))
	}

	if err := s.persistBoth(ctx, clients, projects); err != nil {
		return nil, err
	}
	s.Clients, s.Projects = clients, projects
	return &client, nil
}

// IsDuplicateEmail compares emails case-insensitively, skipping exceptID.
func (s *Store) IsDuplicateEmail(email string, exceptID ID) bool {
	for _, c := range s.Clients {
		if c.ID != exceptID && strings.EqualFold(c.Correo, strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// DeleteClient removes the client and every project linked to it and returns
// the number of projects removed.
func (s *Store) DeleteClient(ctx context.Context, id ID) (int, error) {
	if s.clientIndex(id) < 0 {
		return 0, ErrClientNotFound
	}

	clients := make([]Client, 0, len(s.Clients))
	for _, c := range s.Clients {
		if c.ID != id {
			clients = append(clients, c)
		}
	}
	projects := make([]Project, 0, len(s.Projects))
	for _, p := range s.Projects {
		if p.ClientID == nil || *p.ClientID != id {
			projects = append(projects, p)
		}
	}

	if err := s.persistBoth(ctx, clients, projects); err != nil {
		return 0, err
	}
	removed := len(s.Projects) - len(projects)
	s.Clients, s.Projects = clients, projects
	logging.Logger.Infof("Event ID: CLIENT_DELETED, Description: Client %s deleted with %d projects", id, removed)
	return removed, nil
}

// AddProject creates a project, optionally linked to an existing client.
func (s *Store) AddProject(ctx context.Context, in ProjectInput, clientID *ID) (*Project, error) {
	if strings.TrimSpace(in.Nombre) == "" {
		return nil, fmt.Errorf("%w: project nombre is required", ErrValidation)
	}
	if clientID != nil && s.clientIndex(*clientID) < 0 {
		return nil, ErrClientNotFound
	}
	project := s.newProject(in, clientID)
	projects := append(append([]Project(nil), s.Projects...), project)
	if err := persist(ctx, s.kv, KeyProjects, projects); err != nil {
		return nil, err
	}
	s.Projects = projects
	return &project, nil
}

// AddObservation appends a dated note to a project. Blank text is ignored and
// yields a nil observation.
func (s *Store) AddObservation(ctx context.Context, projectID ID, texto string) (*Observation, error) {
	idx := s.projectIndex(projectID)
	if idx < 0 {
		return nil, ErrProjectNotFound
	}
	if strings.TrimSpace(texto) == "" {
		return nil, nil
	}

	obs := Observation{ID: s.newID(), Texto: texto, Fecha: s.now().Format("2006-01-02")}
	projects := append([]Project(nil), s.Projects...)
	updated := projects[idx]
	updated.Observaciones = append(append([]Observation(nil), updated.Observaciones...), obs)
	projects[idx] = updated

	if err := persist(ctx, s.kv, KeyProjects, projects); err != nil {
		return nil, err
	}
	s.Projects = projects
	return &obs, nil
}

// ProjectsForClient returns the projects linked to clientID.
func (s *Store) ProjectsForClient(clientID ID) []Project {
	out := []Project{}
	for _, p := range s.Projects {
		if p.ClientID != nil && *p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) newProject(in ProjectInput, clientID *ID) Project {
	etapa := strings.TrimSpace(in.Etapa)
	if etapa == "" {
		etapa = DefaultStage
	}
	return Project{
		ID:        s.newID(),
		Nombre:    strings.TrimSpace(in.Nombre),
		Valor:     in.Valor,
		Etapa:     etapa,
		ClientID:  clientID,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
}

// persistBoth writes clients then projects. If the second write fails the
// stored clients are restored.
func (s *Store) persistBoth(ctx context.Context, clients []Client, projects []Project) error {
	if err := persist(ctx, s.kv, KeyClients, clients); err != nil {
		return err
	}
	if err := persist(ctx, s.kv, KeyProjects, projects); err != nil {
		if restoreErr := persist(ctx, s.kv, KeyClients, s.Clients); restoreErr != nil {
			logging.Logger.Errorf("Event ID: LEGACY_RESTORE_FAILED, Description: %v", restoreErr)
		}
		return err
	}
	return nil
}

func (s *Store) clientIndex(id ID) int {
	for i, c := range s.Clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) projectIndex(id ID) int {
	for i, p := range s.Projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}
