package member

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/internal/cell"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeMemberRepo struct {
	Repository
	members     map[primitive.ObjectID]*Member
	nextSeq     int
	failCreates int
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[primitive.ObjectID]*Member)}
}

func (f *fakeMemberRepo) Create(_ context.Context, m *Member) (*Member, error) {
	if f.failCreates > 0 {
		f.failCreates--
		return nil, models.ErrMembershipIDTaken
	}
	m.ID = primitive.NewObjectID()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	f.members[m.ID] = m
	return m, nil
}

func (f *fakeMemberRepo) GetByID(_ context.Context, id primitive.ObjectID) (*Member, error) {
	if m, ok := f.members[id]; ok {
		return m, nil
	}
	return nil, models.ErrMemberNotFound
}

func (f *fakeMemberRepo) GetByEmail(_ context.Context, email string) (*Member, error) {
	for _, m := range f.members {
		if m.Email != nil && *m.Email == email {
			return m, nil
		}
	}
	return nil, models.ErrMemberNotFound
}

func (f *fakeMemberRepo) NextMembershipID(_ context.Context) (string, error) {
	f.nextSeq++
	return fmt.Sprintf("NECF%d%04d", time.Now().Year(), f.nextSeq), nil
}

func (f *fakeMemberRepo) List(_ context.Context, filter *ListFilter) ([]*Member, int64, error) {
	var all []*Member
	for _, m := range f.members {
		all = append(all, m)
	}
	return all, int64(len(all)), nil
}

func (f *fakeMemberRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status string) error {
	m, ok := f.members[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	m.MembershipStatus = status
	return nil
}

func (f *fakeMemberRepo) Update(_ context.Context, id primitive.ObjectID, update bson.M) (*Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, models.ErrMemberNotFound
	}
	if email, ok := update["email"].(string); ok {
		m.Email = &email
	}
	if name, ok := update["first_name"].(string); ok {
		m.FirstName = name
	}
	if status, ok := update["membership_status"].(string); ok {
		m.MembershipStatus = status
	}
	return m, nil
}

type fakeCellRepo struct {
	cell.Repository
	cells map[primitive.ObjectID]*cell.Cell
}

func (f *fakeCellRepo) GetByID(_ context.Context, id primitive.ObjectID) (*cell.Cell, error) {
	if c, ok := f.cells[id]; ok {
		return c, nil
	}
	return nil, models.ErrCellNotFound
}

func newTestService(repo *fakeMemberRepo, cells *fakeCellRepo) Service {
	cfg := &config.Configuration{}
	cfg.Search.MinQueryLimit = 20
	cfg.Search.MaxQueryLimit = 100
	if cells == nil {
		cells = &fakeCellRepo{cells: map[primitive.ObjectID]*cell.Cell{}}
	}
	return NewMemberService(repo, cells, cfg)
}

func strptr(s string) *string { return &s }

func TestCreateAssignsMembershipID(t *testing.T) {
	repo := newFakeMemberRepo()
	svc := newTestService(repo, nil)

	created, err := svc.Create(context.Background(), &CreateRequest{
		FirstName: "Nyasha",
		LastName:  "Chikore",
	}, "")
	require.NoError(t, err)

	prefix := fmt.Sprintf("NECF%d", time.Now().Year())
	assert.Contains(t, created.MembershipID, prefix)
	assert.Equal(t, StatusActive, created.MembershipStatus, "status defaults to ACTIVE")
}

func TestCreateLowercasesEmail(t *testing.T) {
	repo := newFakeMemberRepo()
	svc := newTestService(repo, nil)

	created, err := svc.Create(context.Background(), &CreateRequest{
		FirstName: "Nyasha",
		LastName:  "Chikore",
		Email:     strptr("Nyasha@Example.COM"),
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "nyasha@example.com", *created.Email)
}

func TestCreateEmailConflict(t *testing.T) {
	repo := newFakeMemberRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Create(context.Background(), &CreateRequest{
		FirstName: "Nyasha",
		LastName:  "Chikore",
		Email:     strptr("taken@example.com"),
	}, "")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), &CreateRequest{
		FirstName: "Another",
		LastName:  "Person",
		Email:     strptr("taken@example.com"),
	}, "")
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestCreateUnknownCell(t *testing.T) {
	repo := newFakeMemberRepo()
	svc := newTestService(repo, nil)

	_, err := svc.Create(context.Background(), &CreateRequest{
		FirstName: "Nyasha",
		LastName:  "Chikore",
		CellID:    primitive.NewObjectID().Hex(),
	}, "")
	assert.ErrorIs(t, err, models.ErrCellNotFound)
}

func TestListClampsPagination(t *testing.T) {
	repo := newFakeMemberRepo()
	svc := newTestService(repo, nil)

	resp, err := svc.List(context.Background(), &ListFilter{Limit: 9999})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Limit)
	assert.Equal(t, 1, resp.Page)

	resp, err = svc.List(context.Background(), &ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 20, resp.Limit)
}

func TestListRejectsInvalidStatus(t *testing.T) {
	svc := newTestService(newFakeMemberRepo(), nil)

	_, err := svc.List(context.Background(), &ListFilter{Status: "RESTING"})
	assert.ErrorIs(t, err, models.ErrInvalidParams)
}

func TestCreateRetriesMembershipIDCollision(t *testing.T) {
	repo := newFakeMemberRepo()
	repo.failCreates = 1
	svc := newTestService(repo, nil)

	created, err := svc.Create(context.Background(), &CreateRequest{
		FirstName: "Tariro",
		LastName:  "Gumbo",
	}, "")
	require.NoError(t, err)

	expected := fmt.Sprintf("NECF%d%04d", time.Now().Year(), 2)
	assert.Equal(t, expected, created.MembershipID, "a fresh number is drawn after the collision")
}

// Deactivate is a soft delete: the record stays, only the status flips.
func TestDeactivateFlipsStatus(t *testing.T) {
	repo := newFakeMemberRepo()
	svc := newTestService(repo, nil)

	created, err := svc.Create(context.Background(), &CreateRequest{
		FirstName: "Nyasha",
		LastName:  "Chikore",
	}, "")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), created.ID.Hex()))

	stored := repo.members[created.ID]
	assert.Equal(t, StatusInactive, stored.MembershipStatus)
	assert.Len(t, repo.members, 1, "record is never removed")
}
