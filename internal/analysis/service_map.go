package analysis

import "strconv"

var commonPorts = map[uint16]string{
	20:    "FTP-DATA",
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	67:    "DHCP",
	68:    "DHCP",
	80:    "HTTP",
	110:   "POP3",
	123:   "NTP",
	143:   "IMAP",
	443:   "HTTPS",
	500:   "IKE",
	1194:  "OpenVPN",
	3306:  "MySQL",
	4500:  "IPsec-NAT",
	5432:  "PostgreSQL",
	6379:  "Redis",
	8000:  "HTTP-Alt",
	8080:  "HTTP-Alt",
	51820: "WireGuard",
}

// ServiceName returns the common name for a port, or the port number as a string.
func ServiceName(port uint16) string {
	if name, ok := commonPorts[port]; ok {
		return name
	}
	return strconv.Itoa(int(port))
}

// PortLabel renders a port with its service name when one is known, e.g. "443/HTTPS".
func PortLabel(port uint16) string {
	if name, ok := commonPorts[port]; ok {
		return strconv.Itoa(int(port)) + "/" + name
	}
	return strconv.Itoa(int(port))
}
