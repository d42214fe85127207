package models

import "time"

// Course is a catalog course. Canonical taxonomy references live in the
// *_id fields; the free-text fields are legacy values retained through the
// taxonomy migration window. A legacy field and its canonical counterpart
// may coexist; migration never overwrites a populated canonical field.
type Course struct {
	CourseID       string   `json:"course_id" dynamodbav:"course_id"`
	Title          string   `json:"title" dynamodbav:"title"`
	Description    string   `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Status         string   `json:"status,omitempty" dynamodbav:"status,omitempty"`
	ProductID      string   `json:"product_id,omitempty" dynamodbav:"product_id,omitempty"`
	ProductSuiteID string   `json:"product_suite_id,omitempty" dynamodbav:"product_suite_id,omitempty"`
	TopicTagIDs    []string `json:"topic_tag_ids,omitempty" dynamodbav:"topic_tag_ids,omitempty,omitemptyelem"`

	// Legacy free-text taxonomy values.
	Product              string   `json:"product,omitempty" dynamodbav:"product,omitempty"`
	LegacyProductSuite   string   `json:"legacy_product_suite,omitempty" dynamodbav:"legacy_product_suite,omitempty"`
	LegacyProductConcept string   `json:"legacy_product_concept,omitempty" dynamodbav:"legacy_product_concept,omitempty"`
	TopicTags            []string `json:"topic_tags,omitempty" dynamodbav:"topic_tags,omitempty,omitemptyelem"`

	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
