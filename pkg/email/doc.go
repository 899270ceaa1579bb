// Package email provides templated transactional email sending.
//
// The TemplateSender interface abstracts the provider. NewPostmarkClient
// sends through Postmark's template API; NewDevSender writes sends to disk
// for local development.
package email
