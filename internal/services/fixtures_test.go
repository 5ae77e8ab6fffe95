package services

import (
	"duty-route-service/internal/domain"
)

// corridorTables builds a three-stop corridor on route r1: Alpha Station,
// Bravo Depot (approximate timepoint) and Charlie Point, served by two
// morning trips along shape S1.
func corridorTables() domain.Tables {
	return domain.Tables{
		Stops: []domain.Stop{
			{ID: "sA", Name: "Alpha Station", Lat: 0, Lon: 0},
			{ID: "sB", Name: "Bravo Depot", Lat: 0, Lon: 1},
			{ID: "sC", Name: "Charlie Point", Lat: 0, Lon: 2},
		},
		Trips: []domain.Trip{
			{ID: "t1", RouteID: "r1", Direction: "0", ShapeID: "S1"},
			{ID: "t2", RouteID: "r1", Direction: "0", ShapeID: "S1"},
		},
		StopTimes: []domain.StopTime{
			{TripID: "t1", StopID: "sA", Seq: "1", Departure: "06:15:00", Timepoint: "1"},
			{TripID: "t1", StopID: "sB", Seq: "2", Arrival: "06:30:00", Departure: "06:30:00", Timepoint: "0"},
			{TripID: "t1", StopID: "sC", Seq: "3", Arrival: "06:45:00", Timepoint: "1"},
			{TripID: "t2", StopID: "sA", Seq: "1", Departure: "07:10:00", Timepoint: "1"},
			{TripID: "t2", StopID: "sB", Seq: "2", Arrival: "07:25:00", Departure: "07:25:00", Timepoint: "0"},
			{TripID: "t2", StopID: "sC", Seq: "3", Arrival: "07:40:00", Timepoint: "1"},
		},
		Shapes: []domain.ShapePoint{
			{ShapeID: "S1", Lat: 0, Lon: 0, Seq: "1"},
			{ShapeID: "S1", Lat: 0, Lon: 0.5, Seq: "2"},
			{ShapeID: "S1", Lat: 0, Lon: 1, Seq: "3"},
			{ShapeID: "S1", Lat: 0, Lon: 1.5, Seq: "4"},
			{ShapeID: "S1", Lat: 0, Lon: 2, Seq: "5"},
		},
	}
}

func corridorIndex() *domain.TableIndex {
	return domain.NewTableIndex(corridorTables())
}
