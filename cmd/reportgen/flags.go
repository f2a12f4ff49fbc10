package main

// mustBind panics when a flag cannot be bound; flag names are fixed at
// compile time so this only fires on a programming error.
func mustBind(err error) {
	if err != nil {
		panic(err)
	}
}
