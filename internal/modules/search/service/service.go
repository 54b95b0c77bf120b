package service

import (
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strings"

	"anoa.com/alumninetwork/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const usersIndex = "users"

// UserIndex keeps the searchable user directory in sync with confirmed accounts.
type UserIndex interface {
	IndexUser(user *entity.User) error
	SearchUsers(query string, limit int) ([]string, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) UserIndex {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	searchable := []string{"username", "full_name", "college_name", "current_work"}
	if _, err := s.client.Index(usersIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("Failed to update users searchable attributes: %v", err)
		return
	}
	log.Println("Meilisearch users index initialized")
}

type meiliUserDoc struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	CollegeName string `json:"college_name"`
	Role        string `json:"role"`
	CurrentWork string `json:"current_work"`
}

func (s *meiliSearchService) clean(text string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s.sanitizer.Sanitize(text))), " ")
}

func (s *meiliSearchService) IndexUser(user *entity.User) error {
	doc := meiliUserDoc{
		ID:       user.ID.String(),
		Username: user.Username,
		FullName: s.clean(user.FullName()),
		Role:     user.Role.Name,
	}
	if user.Profile != nil {
		doc.CollegeName = s.clean(user.Profile.CollegeName)
		doc.CurrentWork = s.clean(user.Profile.CurrentWork)
	}

	primaryKey := "id"
	task, err := s.client.Index(usersIndex).AddDocuments([]meiliUserDoc{doc}, &primaryKey)
	if err != nil {
		return fmt.Errorf("index user %s: %w", user.Username, err)
	}
	log.Printf("Indexed user %s, task id: %d", user.Username, task.TaskUID)
	return nil
}

// SearchUsers returns matching usernames in relevance order.
func (s *meiliSearchService) SearchUsers(query string, limit int) ([]string, error) {
	raw, err := s.client.Index(usersIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"username"},
	})
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	var resp struct {
		Hits []meiliUserDoc `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	usernames := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		usernames = append(usernames, hit.Username)
	}
	return usernames, nil
}
