package main

import "strconv"

// optionalFloat is a float flag that stays nil unless given.
type optionalFloat struct {
	v **float64
}

func (f optionalFloat) String() string {
	if f.v == nil || *f.v == nil {
		return "None"
	}
	return strconv.FormatFloat(**f.v, 'g', -1, 64)
}

func (f optionalFloat) Set(s string) error {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f.v = &x
	return nil
}
