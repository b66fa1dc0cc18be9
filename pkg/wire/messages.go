package wire

// Message identifiers for the inspection protocol. Requests come from the
// client, responses echo back in the 0x002x range.
const (
	// connection management
	MsgHello            int16 = 0x0001
	MsgSupportedPlugins int16 = 0x0002
	MsgDisconnect       int16 = 0x000E
	MsgQuit             int16 = 0x000F

	// requests from the client
	MsgRequestRenderInfo  int16 = 0x0011
	MsgRequestRenderImage int16 = 0x0012
	MsgRequestRenderPixel int16 = 0x0013
	MsgRequestCamera      int16 = 0x0014
	MsgRequestScene       int16 = 0x0015
	MsgRequestReloadScene int16 = 0x0016

	// responses to the client
	MsgResponseRenderInfo  int16 = 0x0021
	MsgResponseRenderImage int16 = 0x0022
	MsgResponseRenderPixel int16 = 0x0023
	MsgResponseCamera      int16 = 0x0024
	MsgResponseScene       int16 = 0x0025
	MsgResponseReloadScene int16 = 0x0026
)

// Shape types transferred to the client
const (
	ShapeTriangleMesh int16 = 0
	ShapeSphere       int16 = 1
)
