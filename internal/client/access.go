package client

import (
	"context"
	"net/http"

	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
)

// GetAccessEvents lists access-control events. start and end are optional ISO 8601 times
// passed through as startTime/endTime.
func (c *HikvisionClient) GetAccessEvents(ctx context.Context, start, end string) (xmltree.List, error) {
	doc, err := c.Request(ctx, http.MethodGet, config.ResourceAccessControl,
		WithQuery("startTime", start),
		WithQuery("endTime", end),
	)
	if err != nil {
		return nil, err
	}
	return listItems(doc, "AcsEventList", "AcsEvent"), nil
}

// GetCards lists card records, or the single card cardNo when it is not empty.
func (c *HikvisionClient) GetCards(ctx context.Context, cardNo string) (xmltree.List, error) {
	doc, err := c.Request(ctx, http.MethodGet, config.ResourceCardInfo, WithPathSegment(cardNo))
	if err != nil {
		return nil, err
	}
	return listItems(doc, "CardInfoList", "CardInfo"), nil
}

// GetUsers lists person records, or the single user userID when it is not empty.
func (c *HikvisionClient) GetUsers(ctx context.Context, userID string) (xmltree.List, error) {
	doc, err := c.Request(ctx, http.MethodGet, config.ResourceUserInfo, WithPathSegment(userID))
	if err != nil {
		return nil, err
	}
	return listItems(doc, "UserInfoList", "UserInfo"), nil
}

// listItems returns the itemKey entries under doc's listKey root, a single entry
// becoming a one-element list.
func listItems(doc *xmltree.Map, listKey, itemKey string) xmltree.List {
	list, ok := doc.Child(listKey)
	if !ok {
		return nil
	}
	return xmltree.List(list.Items(itemKey))
}
