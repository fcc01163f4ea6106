package mqtt

import "strings"

// TopicRoot is the first level of all vehicle topics.
const TopicRoot = "vehicles"

// Topic kinds under a vehicle.
const (
	KindMeta      = "meta"
	KindTelemetry = "telemetry"
	KindLink      = "link"
	KindFault     = "fault"
)

// VehicleTopic returns the topic of kind for a vehicle, relative to the
// queue prefix.
func VehicleTopic(vehicleID, kind string) string {
	return TopicRoot + "/" + vehicleID + "/" + kind
}

// ParseVehicleTopic splits a vehicle topic into vehicle ID and kind.
func ParseVehicleTopic(topic string) (vehicleID, kind string, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[0] != TopicRoot || items[1] == "" {
		return "", "", false
	}
	return items[1], items[2], true
}
