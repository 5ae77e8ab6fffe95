package dto

type RosterRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type RosterResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type PlaceRequest struct {
	Name   string  `json:"name"`
	StopID string  `json:"stop_id,omitempty"`
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
}

type CreateActivityRequest struct {
	Kind     string `json:"kind"`
	Position *int   `json:"position,omitempty"`
}

// EditActivityRequest is a partial update: only non-nil fields are applied
// to the activity's configured payload. Times are "HH:MM".
type EditActivityRequest struct {
	RouteID        *string       `json:"route_id,omitempty"`
	DepName        *string       `json:"dep_name,omitempty"`
	DestName       *string       `json:"dest_name,omitempty"`
	CustomDest     *PlaceRequest `json:"custom_dest,omitempty"`
	ClearCustom    bool          `json:"clear_custom_dest,omitempty"`
	DepartOverride *string       `json:"depart_override,omitempty"`
	ArriveOverride *string       `json:"arrive_override,omitempty"`

	Minutes  *int          `json:"minutes,omitempty"`
	Location *PlaceRequest `json:"location,omitempty"`
	Dest     *PlaceRequest `json:"dest,omitempty"`

	RunPathID *string `json:"run_path_id,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`

	Origin *PlaceRequest `json:"origin,omitempty"`
}

type ActivityResponse struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	State          string `json:"state"`
	Start          string `json:"start,omitempty"`
	End            string `json:"end,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`

	RouteID  string `json:"route_id,omitempty"`
	DepName  string `json:"dep_name,omitempty"`
	DestName string `json:"dest_name,omitempty"`
	TripID   string `json:"trip_id,omitempty"`

	Minutes   int    `json:"minutes,omitempty"`
	RunPathID string `json:"run_path_id,omitempty"`
}

type ChainResponse struct {
	Roster     *RosterResponse    `json:"roster,omitempty"`
	Activities []ActivityResponse `json:"activities"`
}

type RoutesResponse struct {
	RouteIDs []string `json:"route_ids"`
}

type RunPathResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	DepName  string `json:"dep_name"`
	DestName string `json:"dest_name"`
}

type UploadTablesResponse struct {
	Stops     int `json:"stops"`
	Trips     int `json:"trips"`
	StopTimes int `json:"stop_times"`
	Shapes    int `json:"shapes"`
	Routes    int `json:"routes"`
}

type UploadRunPathsResponse struct {
	RunPaths []RunPathResponse `json:"run_paths"`
}
