package models

import "time"

// GroupKey is the taxonomy category a metadata option belongs to.
type GroupKey string

const (
	GroupProduct      GroupKey = "product"
	GroupProductSuite GroupKey = "product_suite"
	GroupTopicTag     GroupKey = "topic_tag"
	GroupBadge        GroupKey = "badge"
	GroupAudience     GroupKey = "audience"
)

// GroupKeys lists all valid taxonomy groups.
var GroupKeys = []GroupKey{GroupProduct, GroupProductSuite, GroupTopicTag, GroupBadge, GroupAudience}

// ParseGroupKey validates a raw group key.
func ParseGroupKey(s string) (GroupKey, bool) {
	for _, g := range GroupKeys {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

// Option statuses.
const (
	OptionStatusActive   = "active"
	OptionStatusArchived = "archived"
)

// MaxShortDescriptionLen caps the short_description field.
const MaxShortDescriptionLen = 140

// MetadataOption is a single controlled-vocabulary entry. Slug is unique
// within its group. Rows are never physically removed: archiving sets
// status/archived_at, deletion sets deleted_at.
type MetadataOption struct {
	OptionID         string     `json:"option_id" dynamodbav:"option_id"`
	GroupKey         GroupKey   `json:"group_key" dynamodbav:"group_key"`
	Label            string     `json:"label" dynamodbav:"label"`
	Slug             string     `json:"slug" dynamodbav:"slug"`
	SortOrder        int        `json:"sort_order" dynamodbav:"sort_order"`
	ParentID         string     `json:"parent_id,omitempty" dynamodbav:"parent_id,omitempty"`
	Color            string     `json:"color,omitempty" dynamodbav:"color,omitempty"`
	ShortDescription string     `json:"short_description,omitempty" dynamodbav:"short_description,omitempty"`
	Status           string     `json:"status" dynamodbav:"status"`
	ArchivedAt       *time.Time `json:"archived_at,omitempty" dynamodbav:"archived_at,omitempty"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" dynamodbav:"created_at"`
	CreatedBy        string     `json:"created_by,omitempty" dynamodbav:"created_by,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at" dynamodbav:"updated_at"`
	UpdatedBy        string     `json:"updated_by,omitempty" dynamodbav:"updated_by,omitempty"`
}

// Archived reports whether the option is archived via either mechanism
// (status field or legacy archived_at timestamp).
func (o *MetadataOption) Archived() bool {
	return o.Status == OptionStatusArchived || o.ArchivedAt != nil
}

// Deleted reports whether the option is soft-deleted.
func (o *MetadataOption) Deleted() bool {
	return o.DeletedAt != nil
}

// OptionUsage counts live references to an option from the catalog tables,
// with a bounded sample of referencing IDs for display.
type OptionUsage struct {
	UsedByCourses     int      `json:"used_by_courses"`
	UsedByResources   int      `json:"used_by_resources"`
	SampleCourseIDs   []string `json:"sample_course_ids"`
	SampleResourceIDs []string `json:"sample_resource_ids"`
}

// Total returns the combined reference count.
func (u OptionUsage) Total() int {
	return u.UsedByCourses + u.UsedByResources
}
