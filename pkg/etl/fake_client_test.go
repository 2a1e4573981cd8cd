package etl

import (
	"context"

	"github.com/quotaview/crm-ingress/pkg/hubspot"
)

// fakeClient is a scriptable CRMClient. Unset hooks return empty results so
// tests only wire the calls they exercise.
type fakeClient struct {
	listPage         func(objectType string, properties []string, limit int, after string) (*hubspot.ObjectPage, error)
	getByID          func(objectType, id string, properties []string) (*hubspot.Object, error)
	listAssociations func(fromType, id, toType string) (*hubspot.AssociationPage, error)
	listPipelines    func(objectType string) (*hubspot.PipelineList, error)
	listOwners       func(after string, archived bool) (*hubspot.OwnerPage, error)
	listProperties   func(objectType string) (*hubspot.PropertyList, error)
}

func (f *fakeClient) ListPage(_ context.Context, objectType string, properties []string, limit int, after string) (*hubspot.ObjectPage, error) {
	if f.listPage == nil {
		return &hubspot.ObjectPage{}, nil
	}
	return f.listPage(objectType, properties, limit, after)
}

func (f *fakeClient) GetByID(_ context.Context, objectType, id string, properties []string) (*hubspot.Object, error) {
	if f.getByID == nil {
		return &hubspot.Object{ID: id}, nil
	}
	return f.getByID(objectType, id, properties)
}

func (f *fakeClient) ListAssociations(_ context.Context, fromType, id, toType string) (*hubspot.AssociationPage, error) {
	if f.listAssociations == nil {
		return &hubspot.AssociationPage{}, nil
	}
	return f.listAssociations(fromType, id, toType)
}

func (f *fakeClient) ListPipelines(_ context.Context, objectType string) (*hubspot.PipelineList, error) {
	if f.listPipelines == nil {
		return &hubspot.PipelineList{}, nil
	}
	return f.listPipelines(objectType)
}

func (f *fakeClient) ListOwners(_ context.Context, after string, archived bool) (*hubspot.OwnerPage, error) {
	if f.listOwners == nil {
		return &hubspot.OwnerPage{}, nil
	}
	return f.listOwners(after, archived)
}

func (f *fakeClient) ListProperties(_ context.Context, objectType string) (*hubspot.PropertyList, error) {
	if f.listProperties == nil {
		return &hubspot.PropertyList{}, nil
	}
	return f.listProperties(objectType)
}

// pageFrom builds an object page with an optional continuation cursor.
func pageFrom(cursor string, objects ...hubspot.Object) *hubspot.ObjectPage {
	page := &hubspot.ObjectPage{Results: objects}
	if cursor != "" {
		page.Paging = &hubspot.Paging{Next: &hubspot.NextPage{After: cursor}}
	}
	return page
}

func dealObject(id string, props map[string]string) hubspot.Object {
	return hubspot.Object{ID: id, Properties: props}
}
