// Package proxmox provides the HTTP gateway to the Proxmox VE API.
//
// This package provides:
//   - Session management (Login, ticket and CSRF token handling)
//   - GET/POST/DELETE and multipart upload primitives
//   - Decoding of the {"data": ...} response envelope into typed structures
//   - Translation of transport failures into a closed error taxonomy
//
// Sessions:
//
// Login posts the credentials to /access/ticket. The returned ticket is sent
// back on every later request as the PVEAuthCookie cookie and the CSRF token
// as the CSRFPreventionToken header:
//
//	client, err := proxmox.NewClient("https://pve:8006/api2/json", proxmox.Options{})
//	if err != nil {
//	    return err
//	}
//
//	if _, err := client.Login(ctx, "root@pam", password); err != nil {
//	    return err
//	}
//
//	doc, err := client.Get(ctx, "/nodes")
//	if err != nil {
//	    return err
//	}
//
//	var nodes []proxmox.Node
//	if err := doc.Decode(&nodes); err != nil {
//	    return err
//	}
//
// Error Taxonomy:
//
// Every primitive maps failures the same way:
//   - HTTP 501: KindNotImplemented
//   - HTTP 500: KindServer
//   - HTTP 401: KindUnauthorized
//   - anything else (refused connections, DNS, timeouts, other statuses):
//     KindConnection, carrying the original message
//
// Login reports a server error from the ticket endpoint as
// KindInvalidCredentials. The task poller adds KindTimeout and the VM id
// allocator adds KindNoVMIDAvailable. Use errors.Is with the Err* sentinels
// to test for a kind.
//
// Consumer-Side Interfaces:
//
// Like the rest of pvforge, this package does not define interfaces for its
// consumers. internal/task, internal/vm and internal/storage each declare the
// subset of *Client methods they call.
package proxmox
