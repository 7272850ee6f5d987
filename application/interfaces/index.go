package interfaces

// ApplicationContext carries the parsed request payload and request-scoped
// metadata from the transport layer into controllers.
type ApplicationContext[T any] struct {
	Ctx        any
	Body       *T
	DeviceID   string
	UserAgent  string
	ClientOS   string
	Keys       map[string]any
	Param      map[string]any
}

func (ac *ApplicationContext[T]) GetStringParameter(name string) string {
	if ac.Param == nil {
		return ""
	}
	value, ok := ac.Param[name].(string)
	if !ok {
		return ""
	}
	return value
}
