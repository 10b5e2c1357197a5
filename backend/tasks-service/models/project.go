package models

// ProjectAccess is the ownership summary fetched from projects-service.
type ProjectAccess struct {
	ProjectID string   `json:"projectId"`
	Name      string   `json:"name"`
	CreatorID string   `json:"creatorId"`
	MemberIDs []string `json:"memberIds"`
}

// IsMember reports whether userID is the creator or one of the members.
func (p ProjectAccess) IsMember(userID string) bool {
	if userID == "" {
		return false
	}
	if p.CreatorID == userID {
		return true
	}
	for _, id := range p.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// UserSummary is the subset of a user needed to enrich task responses.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
