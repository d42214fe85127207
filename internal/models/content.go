package models

import "time"

// ContentItem is a catalog resource (deck, one-pager, recording, ...).
// Taxonomy reference layout mirrors Course; Tags is the legacy free-text
// field some older items carry instead of TopicTags.
type ContentItem struct {
	ContentID      string   `json:"content_id" dynamodbav:"content_id"`
	Title          string   `json:"title" dynamodbav:"title"`
	ContentType    string   `json:"content_type,omitempty" dynamodbav:"content_type,omitempty"`
	Status         string   `json:"status,omitempty" dynamodbav:"status,omitempty"`
	AssetKey       string   `json:"asset_key,omitempty" dynamodbav:"asset_key,omitempty"`
	ProductID      string   `json:"product_id,omitempty" dynamodbav:"product_id,omitempty"`
	ProductSuiteID string   `json:"product_suite_id,omitempty" dynamodbav:"product_suite_id,omitempty"`
	TopicTagIDs    []string `json:"topic_tag_ids,omitempty" dynamodbav:"topic_tag_ids,omitempty,omitemptyelem"`

	// Legacy free-text taxonomy values.
	Product            string   `json:"product,omitempty" dynamodbav:"product,omitempty"`
	LegacyProductSuite string   `json:"legacy_product_suite,omitempty" dynamodbav:"legacy_product_suite,omitempty"`
	TopicTags          []string `json:"topic_tags,omitempty" dynamodbav:"topic_tags,omitempty,omitemptyelem"`
	Tags               []string `json:"tags,omitempty" dynamodbav:"tags,omitempty,omitemptyelem"`

	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// LegacyTags returns the item's legacy tag list, preferring topic_tags and
// falling back to the older tags field.
func (c *ContentItem) LegacyTags() []string {
	if len(c.TopicTags) > 0 {
		return c.TopicTags
	}
	return c.Tags
}
