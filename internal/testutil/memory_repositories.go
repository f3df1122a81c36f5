package testutil

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/FranMor97/Book-Server/internal/models"
	"github.com/FranMor97/Book-Server/internal/repository"
)

// MemoryUserRepository implements repository.UserRepositoryInterface.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[uint]models.User
	Calls int
}

func NewMemoryUserRepository(users ...*models.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[uint]models.User)}
	for _, u := range users {
		r.users[u.ID] = *u
	}
	return r
}

func (r *MemoryUserRepository) Add(u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
}

func (r *MemoryUserRepository) FindByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	u, ok := r.users[id]
	if !ok {
		return nil, GetRecordNotFoundError()
	}
	return &u, nil
}

// MemoryBookRepository implements repository.BookRepositoryInterface.
type MemoryBookRepository struct {
	mu    sync.Mutex
	books map[uint]models.Book
}

// NewMemoryBookRepository seeds one placeholder book per id.
func NewMemoryBookRepository(ids ...uint) *MemoryBookRepository {
	r := &MemoryBookRepository{books: make(map[uint]models.Book)}
	for _, id := range ids {
		r.books[id] = models.Book{ID: id, Title: fmt.Sprintf("Book %d", id), Pages: 300}
	}
	return r
}

func (r *MemoryBookRepository) Add(b models.Book) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[b.ID] = b
}

func (r *MemoryBookRepository) Exists(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.books[id]
	return ok, nil
}

func (r *MemoryBookRepository) FindByID(id uint) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, GetRecordNotFoundError()
	}
	return &b, nil
}

// MemoryGroupRepository implements repository.ReadingGroupRepositoryInterface
// with the same version check the SQL repository applies on writes. Groups
// are stored as deep copies so callers never share member slices.
type MemoryGroupRepository struct {
	mu       sync.Mutex
	groups   map[uint]models.ReadingGroup
	messages *MemoryMessageRepository
	nextID   uint

	// BeforeSave runs inside Save before the version check. Tests use it
	// to simulate a concurrent writer.
	BeforeSave func(group *models.ReadingGroup)
	Saves      int
}

func NewMemoryGroupRepository(messages *MemoryMessageRepository) *MemoryGroupRepository {
	return &MemoryGroupRepository{
		groups:   make(map[uint]models.ReadingGroup),
		messages: messages,
		nextID:   1,
	}
}

func cloneGroup(g models.ReadingGroup) models.ReadingGroup {
	members := make([]models.GroupMember, len(g.Members))
	copy(members, g.Members)
	g.Members = members
	return g
}

func (r *MemoryGroupRepository) Create(group *models.ReadingGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if group.ID == 0 {
		group.ID = r.nextID
		r.nextID++
	}
	if group.Version == 0 {
		group.Version = 1
	}
	for i := range group.Members {
		group.Members[i].GroupID = group.ID
	}
	r.groups[group.ID] = cloneGroup(*group)
	return nil
}

func (r *MemoryGroupRepository) FindByID(id uint) (*models.ReadingGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, GetRecordNotFoundError()
	}
	out := cloneGroup(g)
	return &out, nil
}

func (r *MemoryGroupRepository) FindByUser(userID uint) ([]models.ReadingGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ReadingGroup
	for _, g := range r.groups {
		if g.IsMember(userID) {
			out = append(out, cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryGroupRepository) FindIDsByUser(userID uint) ([]uint, error) {
	groups, err := r.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

func (r *MemoryGroupRepository) SearchPublic(query string, offset, limit int) ([]models.ReadingGroup, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	query = strings.ToLower(query)
	var matched []models.ReadingGroup
	for _, g := range r.groups {
		if g.IsPrivate {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(g.Name), query) {
			continue
		}
		matched = append(matched, cloneGroup(g))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.ReadingGroup{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *MemoryGroupRepository) Save(group *models.ReadingGroup) error {
	if r.BeforeSave != nil {
		r.BeforeSave(group)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Saves++
	stored, ok := r.groups[group.ID]
	if !ok || stored.Version != group.Version {
		return repository.ErrStaleGroup
	}
	group.Version++
	r.groups[group.ID] = cloneGroup(*group)
	return nil
}

func (r *MemoryGroupRepository) DeleteWithMessages(group *models.ReadingGroup) error {
	r.mu.Lock()
	stored, ok := r.groups[group.ID]
	if !ok || stored.Version != group.Version {
		r.mu.Unlock()
		return repository.ErrStaleGroup
	}
	delete(r.groups, group.ID)
	r.mu.Unlock()

	if r.messages != nil {
		r.messages.deleteGroup(group.ID)
	}
	return nil
}

// Bump simulates a write by another process.
func (r *MemoryGroupRepository) Bump(groupID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[groupID]; ok {
		g.Version++
		r.groups[groupID] = g
	}
}

func (r *MemoryGroupRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// MemoryMessageRepository implements repository.GroupMessageRepositoryInterface.
type MemoryMessageRepository struct {
	mu       sync.Mutex
	messages map[uint]models.GroupMessage
	nextID   uint
	Err      error
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{
		messages: make(map[uint]models.GroupMessage),
		nextID:   1,
	}
}

func (r *MemoryMessageRepository) Create(message *models.GroupMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if message.ID == 0 {
		message.ID = r.nextID
		r.nextID++
	}
	r.messages[message.ID] = *message
	return nil
}

// FindByGroup returns newest first, like the SQL repository.
func (r *MemoryMessageRepository) FindByGroup(groupID uint, offset, limit int) ([]models.GroupMessage, error) {
	all := r.ForGroup(groupID)
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []models.GroupMessage{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *MemoryMessageRepository) CountByGroup(groupID uint) (int64, error) {
	return int64(len(r.ForGroup(groupID))), nil
}

// ForGroup returns the group's log oldest first.
func (r *MemoryMessageRepository) ForGroup(groupID uint) []models.GroupMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.GroupMessage
	for _, m := range r.messages {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryMessageRepository) deleteGroup(groupID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.messages {
		if m.GroupID == groupID {
			delete(r.messages, id)
		}
	}
}
