// pkg/hubspot/types.go
package hubspot

// ObjectPage is one page of CRM object listing results.
type ObjectPage struct {
	Results []Object `json:"results"`
	Paging  *Paging  `json:"paging,omitempty"`
}

// Object is a raw CRM record: an id and an opaque property bag.
type Object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Property returns a property value, or "" when absent.
func (o Object) Property(name string) string {
	return o.Properties[name]
}

// Paging carries the cursor for the next page, when one exists.
type Paging struct {
	Next *NextPage `json:"next,omitempty"`
}

// NextPage holds the opaque continuation cursor.
type NextPage struct {
	After string `json:"after"`
}

// NextCursor returns the continuation cursor from a page, or "" when the
// listing is exhausted.
func (p *ObjectPage) NextCursor() string {
	if p.Paging != nil && p.Paging.Next != nil {
		return p.Paging.Next.After
	}
	return ""
}

// AssociationPage is one page of association listing results.
type AssociationPage struct {
	Results []Association `json:"results"`
	Paging  *Paging       `json:"paging,omitempty"`
}

// Association is a single edge from the queried object to a related object.
type Association struct {
	ToObjectID int64 `json:"toObjectId"`
}

// PipelineList is the full pipelines listing for an object type.
type PipelineList struct {
	Results []Pipeline `json:"results"`
}

// Pipeline is one sales pipeline with its ordered stages.
type Pipeline struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Stages []Stage `json:"stages"`
}

// Stage is one step of a pipeline.
type Stage struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	DisplayOrder int    `json:"displayOrder"`
}

// OwnerPage is one page of owner listing results.
type OwnerPage struct {
	Results []Owner `json:"results"`
	Paging  *Paging `json:"paging,omitempty"`
}

// NextCursor returns the continuation cursor from an owner page, or "".
func (p *OwnerPage) NextCursor() string {
	if p.Paging != nil && p.Paging.Next != nil {
		return p.Paging.Next.After
	}
	return ""
}

// Owner is a CRM user that records can be attributed to.
type Owner struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// PropertyList is the property-definition listing for an object type.
type PropertyList struct {
	Results []PropertyDefinition `json:"results"`
}

// PropertyDefinition describes one property available on an object type.
type PropertyDefinition struct {
	Name string `json:"name"`
}

// Object type names accepted by the CRM objects API.
const (
	ObjectTypeDeals     = "deals"
	ObjectTypeMeetings  = "meetings"
	ObjectTypeContacts  = "contacts"
	ObjectTypeCompanies = "companies"
)
