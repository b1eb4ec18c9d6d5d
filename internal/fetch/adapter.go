package fetch

import (
	"github.com/guhdong/threadsync/pkg/client"
)

// clientAPI adapts *client.Client to the API interface (the concrete
// paginator type has to be lifted to the Paginator interface).
type clientAPI struct {
	*client.Client
}

func (a clientAPI) Timeline(userID, sinceID string) Paginator {
	return a.Client.Timeline(userID, sinceID)
}

// WrapClient exposes the official client through the fetcher API.
func WrapClient(c *client.Client) API {
	return clientAPI{c}
}
