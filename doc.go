// Package comport manages a single serial COM connection and streams what it
// receives to a consumer.
//
// A Manager opens the port described by a Settings value, reads from it on a
// background goroutine and reports everything it sees as notifications: a
// DataEvent for every chunk of received bytes, a FaultEvent for every open,
// read or write failure. Notifications never travel on the read goroutine to
// the consumer directly. They go through a Dispatcher, which posts them onto
// the consumer's own execution context (a Loop, a bubbletea program, or any
// other Target).
//
// # Basic Usage
//
//	loop := comport.NewLoop()
//	d := comport.NewDispatcher(loop, comport.HandlerFuncs{
//	    Data: func(ctx context.Context, ev comport.DataEvent) {
//	        os.Stdout.Write(ev.Bytes())
//	    },
//	    Fault: func(ctx context.Context, ev comport.FaultEvent) {
//	        log.Println(ev.Message())
//	    },
//	})
//	defer d.Close()
//
//	m := comport.NewManager(d)
//	defer m.Teardown()
//
//	s, err := comport.NewSettings("/dev/ttyUSB0", comport.WithBaudRate(115200))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !m.Start(ctx, s) {
//	    // the reason arrives as an OpenFailure FaultEvent
//	}
//
//	go loop.Run(ctx)
//
// # Settings
//
// Settings default to 9600 baud, 8 data bits, no parity, one stop bit and a
// 500ms read timeout. The read timeout bounds how long Stop waits for the read
// goroutine. BaudRates, DataBitsValues, Parities and StopBitsValues list the
// values a settings surface should offer, and ListPorts the ports present.
//
// # Drivers
//
// The default driver is go.bug.st/serial. OpenerFor also knows "tarm"
// (github.com/tarm/serial), "native" (termios through golang.org/x/sys/unix,
// Linux only) and "loopback", an in-memory device that echoes writes back.
//
// # Delivery
//
// Dispatcher.SetDeliveryEnabled(false) suppresses DataEvents, including ones
// already queued. Fault events are always delivered and the port keeps being
// read while delivery is off.
//
// # Error Handling
//
// Failures are reported as FaultEvents whose Err wraps one of the sentinel
// errors in this package:
//
//	if errors.Is(ev.Err, comport.ErrDeviceInUse) {
//	    // another process holds the port
//	}
package comport
