// File: api/schemas/transport.go
package schemas

// CommandRequest carries one command line to the page identified by TabID.
type CommandRequest struct {
	// ID correlates a response with its request on multiplexed connections.
	ID      string `json:"id,omitempty"`
	TabID   string `json:"tab_id"`
	Command string `json:"command"`
}

// CommandResponse is the reply to a CommandRequest. Error is set only when
// the command could not be delivered; command failures live in Result.
type CommandResponse struct {
	ID     string  `json:"id,omitempty"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// TabInfo describes a page reachable through a transport.
type TabInfo struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}
