// Package hub holds the domain types of the learning hub: resources that
// people share, the teams they are grouped in and the users submitting them.
package hub

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

// PlaceholderTitle is stored when no title could be resolved for a link.
const PlaceholderTitle = "Untitled Resource"

type (
	// Resource is a link to some learning material.
	Resource struct {
		ID          string       `db:"id"`
		URL         string       `db:"url"` // Canonical, see NormalizeURL
		Title       string       `db:"title"`
		Summary     string       `db:"summary"`
		ContextNote *string      `db:"context_note"`
		Category    Category     `db:"category"`
		Type        ResourceType `db:"type"`
		Status      Status       `db:"status"`
		TeamID      *string      `db:"team_id"`
		Upvotes     int          `db:"upvotes"`
		Downvotes   int          `db:"downvotes"`
		CreatedAt   time.Time    `db:"created_at"`
	}

	// Team is a named grouping of resources.
	Team struct {
		ID            string    `db:"id"`
		Name          string    `db:"name"`
		Description   *string   `db:"description"`
		CreatedAt     time.Time `db:"created_at"`
		ResourceCount int       `db:"resource_count"`
	}

	User struct {
		ID          string     `db:"id"`
		Email       string     `db:"email"`
		Username    string     `db:"username"`
		CreatedAt   time.Time  `db:"created_at"`
		LastLoginAt *time.Time `db:"last_login_at"`
	}

	// ResourcesArgs filters a resource listing. Zero values mean no filter,
	// except Status which defaults to active.
	ResourcesArgs struct {
		Status   Status
		TeamID   string
		Category Category
		Type     ResourceType
		Search   string

		// Paging, ignored when Limit is 0
		Limit  uint64
		Offset uint64
	}
)

type (
	ResourceRepo interface {
		Resource(ctx context.Context, id string) (Resource, error)
		ResourceByURL(ctx context.Context, url string) (Resource, error)
		Resources(ctx context.Context, args ResourcesArgs) ([]Resource, error)
		InsertResource(ctx context.Context, r Resource) (Resource, error)
		// Inserts all of the given resources at once, dropping the ones whose url
		// already exists. Returns the created ones in input order.
		InsertResources(ctx context.Context, rs []Resource) ([]Resource, error)
		UpdateResourceStatus(ctx context.Context, id string, status Status) (Resource, error)
		UpdateResourceMetadata(ctx context.Context, id string, title, summary string) error
		// Lists resources that were stored with placeholder or empty metadata.
		ResourcesNeedingMetadata(ctx context.Context, limit uint64) ([]Resource, error)
		Vote(ctx context.Context, id string, dir VoteDirection) (Resource, error)
		DeleteResource(ctx context.Context, id string) error
	}

	TeamRepo interface {
		Team(ctx context.Context, id string) (Team, error)
		Teams(ctx context.Context) ([]Team, error)
		InsertTeam(ctx context.Context, t Team) (Team, error)
		// Unlinks every resource of the team and then deletes it.
		DeleteTeam(ctx context.Context, id string) error
	}

	UserRepo interface {
		// Finds the user with the email, creating them if needed.
		// The bool reports if the user was created.
		EnsureUser(ctx context.Context, email string) (User, bool, error)
		User(ctx context.Context, id string) (User, error)
	}

	Repository interface {
		ResourceRepo
		TeamRepo
		UserRepo
	}
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

// Category is the topic a resource belongs to.
type Category string

var Categories = []Category{
	"AI & Machine Learning",
	"Data Engineering & Architecture",
	"Data Science & Analytics",
	"Programming & Development",
	"Tools & Platforms",
	"Productivity & Career Development",
	"Research & Papers",
	"Industry News & Trends",
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ResourceType is the kind of content behind a link.
type ResourceType string

var ResourceTypes = []ResourceType{
	"Article",
	"Video",
	"Tutorial",
	"Tool",
	"Course",
	"Newsletter",
	"Podcast",
	"Research Paper",
}

func (t ResourceType) Valid() bool {
	for _, known := range ResourceTypes {
		if t == known {
			return true
		}
	}
	return false
}
