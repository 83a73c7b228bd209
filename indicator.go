package sniffer

// PinIndicator drives the activity, status and fault lights from GPIO pins.
// Any pin may be nil.
type PinIndicator struct {
	Activity Pin
	Status   Pin
	Fault    Pin
}

// NewPinIndicator configures the given pins as outputs and switches them off.
func NewPinIndicator(activity, status, fault Pin) *PinIndicator {
	ind := &PinIndicator{Activity: activity, Status: status, Fault: fault}
	ind.SetActivity(false)
	ind.SetStatus(false)
	ind.SetFault(false)
	return ind
}

func (p *PinIndicator) SetActivity(on bool) { drive(p.Activity, on) }
func (p *PinIndicator) SetStatus(on bool)   { drive(p.Status, on) }
func (p *PinIndicator) SetFault(on bool)    { drive(p.Fault, on) }

func drive(pin Pin, on bool) {
	if pin == nil {
		return
	}
	if err := pin.Out(Level(on)); err != nil {
		globalLogger.Debug("indicator: " + err.Error())
	}
}

type nopIndicator struct{}

func (nopIndicator) SetActivity(bool) {}
func (nopIndicator) SetStatus(bool)   {}
func (nopIndicator) SetFault(bool)    {}
